package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/tui/ui"
)

// ContactPicker chooses the recipient of a new message. Typing narrows the
// list and Enter takes the highlighted contact.
type ContactPicker struct {
	*tview.Flex
	theme    *ui.Theme
	input    *tview.InputField
	results  *tview.Table
	// rows maps table rows to contacts; headers and section labels are nil.
	rows     []*inbox.Contact
	onQuery  func(query string)
	onSelect func(c inbox.Contact)
}

// NewContactPicker creates the picker.
func NewContactPicker(theme *ui.Theme) *ContactPicker {
	input := tview.NewInputField().
		SetLabel(" To: ").
		SetFieldWidth(0).
		SetPlaceholder("name or number")
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Contacts ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	cp := &ContactPicker{
		Flex:    flex,
		theme:   theme,
		input:   input,
		results: results,
	}

	input.SetChangedFunc(func(text string) {
		if cp.onQuery != nil {
			cp.onQuery(text)
		}
	})
	input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		if c, ok := cp.Selected(); ok && cp.onSelect != nil {
			cp.onSelect(c)
		}
	})
	results.SetSelectedFunc(func(row, _ int) {
		if c, ok := cp.contactAt(row); ok && cp.onSelect != nil {
			cp.onSelect(c)
		}
	})
	return cp
}

// Name implements Component.
func (cp *ContactPicker) Name() string { return "Contacts" }

// Hints implements Component.
func (cp *ContactPicker) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Choose"},
		{Key: "Tab", Description: "Results"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnQuery sets the callback run on every keystroke in the input.
func (cp *ContactPicker) SetOnQuery(fn func(query string)) {
	cp.onQuery = fn
}

// SetOnSelect sets the callback run when a contact is chosen.
func (cp *ContactPicker) SetOnSelect(fn func(c inbox.Contact)) {
	cp.onSelect = fn
}

// Reset clears the query.
func (cp *ContactPicker) Reset() {
	cp.input.SetText("")
}

// Query returns the current input text.
func (cp *ContactPicker) Query() string {
	return cp.input.GetText()
}

// Update renders the candidates. A non-empty frequent list is shown in
// its own section above the full list.
func (cp *ContactPicker) Update(frequent, contacts []inbox.Contact) {
	cp.results.Clear()
	cp.rows = cp.rows[:0]

	headers := []string{" ", " NAME", " NUMBER"}
	for col, h := range headers {
		cp.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(cp.theme.TableHeaderFg).
			SetBackgroundColor(cp.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}
	cp.rows = append(cp.rows, nil)

	if len(frequent) > 0 {
		cp.addSection("Frequent")
		cp.addContacts(frequent)
		cp.addSection("All contacts")
	}
	cp.addContacts(contacts)

	cp.results.SetTitle(fmt.Sprintf(" Contacts (%d) ", len(contacts)))
	for row, c := range cp.rows {
		if c != nil {
			cp.results.Select(row, 0)
			break
		}
	}
}

func (cp *ContactPicker) addSection(label string) {
	row := len(cp.rows)
	cp.results.SetCell(row, 0, tview.NewTableCell("").SetSelectable(false))
	cp.results.SetCell(row, 1, tview.NewTableCell(" "+label).
		SetSelectable(false).
		SetTextColor(cp.theme.TitleColor).
		SetAttributes(tcell.AttrDim))
	cp.results.SetCell(row, 2, tview.NewTableCell("").SetSelectable(false))
	cp.rows = append(cp.rows, nil)
}

func (cp *ContactPicker) addContacts(contacts []inbox.Contact) {
	for i := range contacts {
		c := &contacts[i]
		row := len(cp.rows)
		avatar := " "
		if inbox.IsSymbolAvatar(c.Avatar) {
			avatar = c.Avatar
		}
		name := c.Name
		if name == "" {
			name = inbox.FormatNumber(c.ID)
		}
		cp.results.SetCell(row, 0, tview.NewTableCell(" "+sanitizeForTerminal(avatar)))
		cp.results.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetExpansion(1).SetTextColor(cp.theme.FgColor))
		cp.results.SetCell(row, 2, tview.NewTableCell(" "+inbox.FormatNumber(c.ID)).SetTextColor(cp.theme.CounterColor))
		cp.rows = append(cp.rows, c)
	}
}

// Selected returns the contact under the cursor.
func (cp *ContactPicker) Selected() (inbox.Contact, bool) {
	row, _ := cp.results.GetSelection()
	return cp.contactAt(row)
}

func (cp *ContactPicker) contactAt(row int) (inbox.Contact, bool) {
	if row < 0 || row >= len(cp.rows) || cp.rows[row] == nil {
		return inbox.Contact{}, false
	}
	return *cp.rows[row], true
}

// Input returns the query field.
func (cp *ContactPicker) Input() *tview.InputField {
	return cp.input
}

// Results returns the results table.
func (cp *ContactPicker) Results() *tview.Table {
	return cp.results
}
