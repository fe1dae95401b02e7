package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/matheus3301/wpp-inbox/internal/status"
)

// StatusBar displays persistent session status.
type StatusBar struct {
	*tview.TextView
	session string
	report  status.Report
	offline bool
	flash   string
	now     func() time.Time
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, now: time.Now}
}

// SetSession updates the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetReport updates the backend and state display.
func (sb *StatusBar) SetReport(r status.Report) {
	sb.report = r
	sb.render()
}

// SetOffline toggles the offline indicator.
func (sb *StatusBar) SetOffline(offline bool) {
	sb.offline = offline
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	state := string(sb.report.State)
	switch sb.report.State {
	case status.Ready:
		state = "[green]" + state + "[-]"
	case status.Error, status.AuthTimeout:
		state = "[red]" + state + "[-]"
	case "":
		state = "-"
	default:
		state = "[yellow]" + state + "[-]"
	}

	parts := []string{"[::b]" + tview.Escape(sb.session) + "[-:-:-]"}
	if sb.report.Backend != "" {
		parts = append(parts, sb.report.Backend)
	}
	parts = append(parts, state)
	if sb.offline {
		parts = append(parts, "[red::b]offline[-:-:-]")
	}
	parts = append(parts, sb.now().Format("15:04"))
	if sb.flash != "" {
		parts = append(parts, "[yellow]"+tview.Escape(sb.flash)+"[-]")
	}

	_, _ = fmt.Fprint(sb, " "+strings.Join(parts, " | "))
}
