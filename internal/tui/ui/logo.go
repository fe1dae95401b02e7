package ui

import (
	"strings"

	"github.com/rivo/tview"
)

var logoArt = []string{
	"╦╔╗╔╔╗ ╔═╗═╗ ╦",
	"║║║║╠╩╗║ ║╔╩╦╝",
	"╩╝╚╝╚═╝╚═╝╩ ╚═",
}

// NewLogo returns the header art with tagline underneath.
func NewLogo(theme *Theme, tagline string) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)
	tv.SetText(logoText(theme, tagline))
	return tv
}

func logoText(theme *Theme, tagline string) string {
	var b strings.Builder
	title := colorName(theme.TitleColor)
	for _, line := range logoArt {
		b.WriteString("[" + title + "::b]" + line + "[-:-:-]\n")
	}
	if tagline != "" {
		b.WriteString("[" + colorName(theme.FgColor) + "]" + tview.Escape(tagline) + "[-]")
	}
	return b.String()
}
