package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Session  string
	Backend  string
	Account  string
	Phone    string
	State    string
	Messages int
	Contacts int
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fg := colorName(si.theme.FgColor)
	ct := colorName(si.theme.CounterColor)
	line := func(label, value string) {
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(si, "[%s::b]%-9s[-:-:-][%s]%s[-]\n", fg, label+":", ct, tview.Escape(value))
	}

	line("Session", data.Session)
	line("Backend", data.Backend)
	line("Account", data.Account)
	line("Phone", data.Phone)
	line("State", data.State)
	line("Msgs", fmt.Sprintf("%d / %d contacts", data.Messages, data.Contacts))
}
