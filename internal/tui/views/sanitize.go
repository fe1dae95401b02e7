package views

import (
	"strings"

	"github.com/rivo/uniseg"
)

// sanitizeForTerminal collapses emoji sequences that tcell cannot measure
// into their base symbol. A cluster joined with ZWJ, carrying a skin tone
// modifier or a variation selector renders as its first rune, so a family
// emoji becomes a single 2-cell face.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		runes := g.Runes()
		if len(runes) > 1 && isEmojiSequence(runes) {
			b.WriteRune(runes[0])
			continue
		}
		for _, r := range runes {
			if !isJoinerOrModifier(r) {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func isEmojiSequence(runes []rune) bool {
	for _, r := range runes[1:] {
		if isJoinerOrModifier(r) {
			return true
		}
	}
	return false
}

func isJoinerOrModifier(r rune) bool {
	switch {
	// Skin tone modifiers.
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	// Variation selectors.
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}

// truncate cuts s to at most width terminal cells, adding an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 || uniseg.StringWidth(s) <= width {
		return s
	}
	var b strings.Builder
	w := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cw := g.Width()
		if w+cw > width-1 {
			break
		}
		b.WriteString(g.Str())
		w += cw
	}
	return b.String() + "…"
}
