package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/tui/ui"
)

// ContactInfo shows who is behind the selected message.
type ContactInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewContactInfo creates the details view.
func NewContactInfo(theme *ui.Theme) *ContactInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ContactInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ci *ContactInfo) Name() string { return "Details" }

// Hints implements Component.
func (ci *ContactInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Reply"},
		{Key: "Esc", Description: "Back"},
		{Key: "?", Description: "Help"},
	}
}

// Update renders the counterparty of m.
func (ci *ContactInfo) Update(m inbox.Message, who inbox.Annotation, contact *inbox.Contact) {
	ci.Clear()

	fg := colorName(ci.theme.FgColor)
	ct := colorName(ci.theme.CounterColor)
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(ci, " [%s::b]%-13s[-:-:-] [%s]%s[-]\n", fg, label+":", ct, tview.Escape(sanitizeForTerminal(value)))
	}

	_, _ = fmt.Fprintln(ci)
	row("Name", who.Name)
	row("Chat", who.ID)
	row("Number", inbox.FormatNumber(who.ID))
	avatar := who.Avatar
	if !inbox.IsSymbolAvatar(avatar) && avatar != "" {
		avatar = "(picture) " + avatar
	}
	row("Avatar", avatar)
	if contact != nil {
		row("Push name", contact.PushName)
		row("Last seen", contact.LastSeen)
	}
	direction := "received"
	if m.FromMe {
		direction = "sent"
	}
	row("Last message", fmt.Sprintf("%s %s", direction, inbox.Time(m.Timestamp).Format(time.DateTime)))
	row("Type", string(m.Kind))

	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(who.Name))))
}
