package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	"github.com/rivo/uniseg"
)

// MenuHint is one key shown in the header menu.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool
}

// Component is a page the app can push. Name labels its crumb and Hints
// fills the header menu while it is on top.
type Component interface {
	Name() string
	Hints() []MenuHint
}

// Menu lays hints out top to bottom, then left to right, in as many
// columns as the header height requires.
type Menu struct {
	*tview.TextView
	theme *Theme
	rows  int
}

// NewMenu creates a menu that fills columns of rows lines.
func NewMenu(theme *Theme, rows int) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)
	if rows < 1 {
		rows = 1
	}
	return &Menu{TextView: tv, theme: theme, rows: rows}
}

// Update renders hints.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, m.layout(hints))
}

func (m *Menu) layout(hints []MenuHint) string {
	if len(hints) == 0 {
		return ""
	}
	cols := (len(hints) + m.rows - 1) / m.rows

	widths := make([]int, cols)
	for i, h := range hints {
		c := i / m.rows
		widths[c] = max(widths[c], hintWidth(h))
	}

	keyColor := colorName(m.theme.MenuKeyColor)
	numColor := colorName(m.theme.NumericKeyColor)

	var b strings.Builder
	for r := 0; r < min(m.rows, len(hints)); r++ {
		for c := 0; c < cols; c++ {
			i := c*m.rows + r
			if i >= len(hints) {
				break
			}
			h := hints[i]
			kc := keyColor
			if h.Numeric {
				kc = numColor
			}
			fmt.Fprintf(&b, "[%s::b]<%s>[-:-:-] %s", kc, tview.Escape(h.Key), h.Description)
			if c < cols-1 && i+m.rows < len(hints) {
				b.WriteString(strings.Repeat(" ", widths[c]-hintWidth(h)+3))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func hintWidth(h MenuHint) int {
	return uniseg.StringWidth(h.Key) + 2 + 1 + uniseg.StringWidth(h.Description)
}
