package inbox

import (
	"strings"
	"unicode/utf16"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
)

const (
	// UnknownName is shown when no identifier is available at all.
	UnknownName = "Unknown Contact"
	// DefaultAvatar is the placeholder for a missing identifier.
	DefaultAvatar = "👤"
)

var avatarPalette = [...]string{"👨", "👩", "👱", "👴", "👶", "👷", "👸", "👹", "👺", "👻"}

// DisplayName maps an identifier to a human-readable name.
//
// Resolution order: directory name, Indian national format for 12 digit
// numbers starting with 91, generic "+<digits>", raw identifier.
func DisplayName(id string, dir Directory) string {
	if id == "" {
		return UnknownName
	}
	if c, ok := dir[id]; ok {
		if c.Name != "" {
			return c.Name
		}
		if c.PushName != "" {
			return c.PushName
		}
	}
	return FormatNumber(id)
}

// FormatNumber formats the numeric portion of a chat id. Ids whose user
// part is not purely numeric are returned unchanged.
func FormatNumber(id string) string {
	number, _, _ := strings.Cut(id, "@")
	if !isDigits(number) {
		return id
	}
	if strings.HasPrefix(number, "91") && len(number) == 12 {
		return "+91 " + number[2:7] + " " + number[7:]
	}
	return "+" + number
}

// Avatar returns the directory picture for id or a stable placeholder symbol.
func Avatar(id string, dir Directory) string {
	if id == "" {
		return DefaultAvatar
	}
	if c, ok := dir[id]; ok {
		if c.ProfilePicURL != "" {
			return c.ProfilePicURL
		}
		if c.Avatar != "" {
			return c.Avatar
		}
	}
	return avatarPalette[paletteIndex(id)]
}

// Resolve returns the full counterparty annotation for id.
func Resolve(id string, dir Directory) Annotation {
	return Annotation{ID: id, Name: DisplayName(id, dir), Avatar: Avatar(id, dir)}
}

// Speaker returns the name to render next to a message: the attached
// annotation when present, otherwise the resolved conversation key.
func Speaker(m Message, dir Directory) string {
	if a, ok := m.Counterparty(); ok {
		return a.Name
	}
	return DisplayName(m.Key(), dir)
}

// IsSymbolAvatar reports whether an avatar is a single emoji placeholder
// rather than an image URL.
func IsSymbolAvatar(avatar string) bool {
	return gomoji.ContainsEmoji(avatar) && uniseg.GraphemeClusterCount(avatar) == 1
}

// paletteIndex sums UTF-16 code units so ids hash the same way the web
// client does.
func paletteIndex(id string) int {
	sum := 0
	for _, u := range utf16.Encode([]rune(id)) {
		sum += int(u)
	}
	return sum % len(avatarPalette)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
