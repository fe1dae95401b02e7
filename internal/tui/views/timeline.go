package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/tui/ui"
)

// Namer resolves display identities. *outbox.Timeline satisfies it.
type Namer interface {
	Speaker(m inbox.Message) string
	Resolve(id string) inbox.Annotation
}

// Timeline is the unified message table, oldest first, with a separator
// row above each day.
type Timeline struct {
	*tview.Table
	theme  *ui.Theme
	msgs   []inbox.Message
	names  Namer
	filter string
	now    func() time.Time

	// rows maps table rows to indexes in msgs; separators map to -1.
	rows []int
}

// NewTimeline creates the timeline table.
func NewTimeline(theme *ui.Theme) *Timeline {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Inbox ")
	table.SetTitleColor(theme.TitleColor)

	return &Timeline{Table: table, theme: theme, now: time.Now}
}

// Name implements Component.
func (tl *Timeline) Name() string { return "Inbox" }

// Hints implements Component.
func (tl *Timeline) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Reply"},
		{Key: "n", Description: "New"},
		{Key: "d", Description: "Details"},
		{Key: "/", Description: "Filter"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
	}
}

// Update replaces the rendered messages. The cursor stays on the same
// message when it still exists and follows the newest one when it was
// already at the bottom.
func (tl *Timeline) Update(msgs []inbox.Message, names Namer) {
	prev, hadPrev := tl.Selected()
	atEnd := tl.atEnd()

	tl.msgs = msgs
	tl.names = names
	tl.render()

	switch {
	case len(tl.rows) == 0:
	case hadPrev && !atEnd:
		tl.selectMessage(prev.ID)
	default:
		tl.Select(len(tl.rows)-1, 0)
		tl.ScrollToEnd()
	}
}

// SetFilter shows only messages whose speaker or body contain filter.
func (tl *Timeline) SetFilter(filter string) {
	tl.filter = strings.ToLower(strings.TrimSpace(filter))
	tl.render()
	if len(tl.rows) > 0 {
		tl.Select(len(tl.rows)-1, 0)
	}
}

// ClearFilter removes the active filter.
func (tl *Timeline) ClearFilter() {
	tl.SetFilter("")
}

// Filter returns the active filter.
func (tl *Timeline) Filter() string { return tl.filter }

// Selected returns the message under the cursor.
func (tl *Timeline) Selected() (inbox.Message, bool) {
	row, _ := tl.GetSelection()
	if row < 0 || row >= len(tl.rows) || tl.rows[row] < 0 {
		return inbox.Message{}, false
	}
	return tl.msgs[tl.rows[row]], true
}

func (tl *Timeline) atEnd() bool {
	row, _ := tl.GetSelection()
	return row >= len(tl.rows)-1
}

func (tl *Timeline) selectMessage(id string) {
	for row, i := range tl.rows {
		if i >= 0 && tl.msgs[i].ID == id {
			tl.Select(row, 0)
			return
		}
	}
	tl.Select(len(tl.rows)-1, 0)
}

func (tl *Timeline) matches(m inbox.Message, speaker string) bool {
	if tl.filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(speaker), tl.filter) ||
		strings.Contains(strings.ToLower(m.Body), tl.filter)
}

func (tl *Timeline) render() {
	tl.Clear()
	tl.rows = tl.rows[:0]

	now := tl.now()
	lastDay := ""
	shown := 0
	for i, m := range tl.msgs {
		speaker := tl.speaker(m)
		if !tl.matches(m, speaker) {
			continue
		}
		if day := inbox.DayLabel(m.Timestamp, now); day != lastDay {
			lastDay = day
			tl.addSeparator(day)
		}
		tl.addMessage(i, m, speaker)
		shown++
	}

	if tl.filter != "" {
		tl.SetTitle(fmt.Sprintf(" Inbox (%d/%d) filter: %s ", shown, len(tl.msgs), tl.filter))
	} else {
		tl.SetTitle(fmt.Sprintf(" Inbox (%d) ", len(tl.msgs)))
	}
}

func (tl *Timeline) speaker(m inbox.Message) string {
	if tl.names == nil {
		return inbox.Speaker(m, nil)
	}
	return tl.names.Speaker(m)
}

func (tl *Timeline) addSeparator(day string) {
	row := len(tl.rows)
	tl.SetCell(row, 0, tview.NewTableCell("").SetSelectable(false))
	tl.SetCell(row, 1, tview.NewTableCell("── "+day+" ──").
		SetSelectable(false).
		SetAlign(tview.AlignCenter).
		SetExpansion(1).
		SetTextColor(tl.theme.CounterColor).
		SetAttributes(tcell.AttrDim))
	tl.SetCell(row, 2, tview.NewTableCell("").SetSelectable(false))
	tl.rows = append(tl.rows, -1)
}

func (tl *Timeline) addMessage(i int, m inbox.Message, speaker string) {
	row := len(tl.rows)

	who := speaker
	avatar := ""
	if tl.names != nil {
		if a := tl.names.Resolve(m.Key()).Avatar; inbox.IsSymbolAvatar(a) {
			avatar = a + " "
		}
	}
	if m.FromMe {
		who = "You → " + speaker
	}

	body := m.Body
	if m.HasMedia && body == "" {
		body = "[" + string(m.Kind) + "]"
	}

	mark := ""
	if inbox.IsPending(m.ID) {
		mark = " …"
	}

	color := tl.theme.FgColor
	if m.FromMe {
		color = tl.theme.MenuKeyColor
	}

	tl.SetCell(row, 0, tview.NewTableCell(" "+inbox.Time(m.Timestamp).Format("15:04")).
		SetTextColor(tl.theme.CounterColor))
	tl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(avatar+truncate(who, 28)))).
		SetMaxWidth(32).
		SetTextColor(color).
		SetAttributes(tcell.AttrBold))
	tl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(body))+mark).
		SetExpansion(1).
		SetTextColor(color))
	tl.rows = append(tl.rows, i)
}
