package views

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/rivo/tview"

	"github.com/matheus3301/wpp-inbox/internal/status"
	"github.com/matheus3301/wpp-inbox/internal/tui/ui"
)

// AuthView walks the user through pairing: it renders the pairing QR,
// progress while connecting, and the timeout screen.
type AuthView struct {
	*tview.TextView
	theme  *ui.Theme
	lastQR string
}

// NewAuthView creates a new auth view.
func NewAuthView(theme *ui.Theme) *AuthView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Authentication Required ")
	tv.SetTitleColor(theme.TitleColor)

	return &AuthView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (av *AuthView) Name() string { return "Auth" }

// Hints implements Component.
func (av *AuthView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "r", Description: "Retry pairing"},
		{Key: "q", Description: "Quit"},
	}
}

// Render shows the screen for a status report. The QR block is only
// redrawn when the code rotates.
func (av *AuthView) Render(r status.Report) {
	switch {
	case r.State == status.AuthTimeout:
		av.ShowTimeout()
	case r.RawQR != "":
		if r.RawQR != av.lastQR {
			av.ShowQR(r.RawQR)
		}
	case r.State == status.Error:
		av.ShowMessage("[red]" + tview.Escape(r.Error) + "[-]\n\n[::d]Restart the daemon to try again.")
	default:
		av.ShowMessage(fmt.Sprintf("Connecting to WhatsApp...\n\n[::d]state: %s", r.State))
	}
}

// ShowQR renders a QR code string as a scannable block.
func (av *AuthView) ShowQR(content string) {
	av.lastQR = content
	av.Clear()
	_, _ = fmt.Fprintf(av, "\n  Open WhatsApp on your phone, go to Linked Devices and scan:\n\n%s\n  [::d]Waiting for authentication...", renderQR(content))
}

// ShowTimeout tells the user the pairing window closed.
func (av *AuthView) ShowTimeout() {
	av.lastQR = ""
	av.Clear()
	_, _ = fmt.Fprint(av, "\n\n[orange]Authentication timed out.[-]\n\n[::d]Press r to request a new QR code or q to quit.")
}

// ShowMessage displays a status message.
func (av *AuthView) ShowMessage(msg string) {
	av.lastQR = ""
	av.Clear()
	_, _ = fmt.Fprintf(av, "\n\n%s", msg)
}

// renderQR converts a string to a compact QR code using Unicode half-block
// characters, two modules per text row.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := y+1 < rows && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
