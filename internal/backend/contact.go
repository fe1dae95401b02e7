package backend

import (
	"strings"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

// Contact is the directory entry type returned by backends.
type Contact = inbox.Contact

// UserSuffix is the address suffix used for individual chats.
const UserSuffix = "@c.us"

// ChatID turns a bare or "+"-prefixed phone number into a chat id. Ids that
// already carry a server part are returned unchanged.
func ChatID(number string) string {
	if strings.Contains(number, "@") {
		return number
	}
	return strings.TrimPrefix(strings.TrimSpace(number), "+") + UserSuffix
}

// Number returns the digits of a chat id without the server part or a
// leading "+".
func Number(id string) string {
	user, _, _ := strings.Cut(id, "@")
	return strings.TrimPrefix(user, "+")
}

// FormatContact fills in display defaults: the name falls back to the push
// name and then the number, and the avatar to the profile picture or the
// default placeholder.
func FormatContact(c Contact) Contact {
	if c.Name == "" {
		c.Name = c.PushName
	}
	if c.Name == "" {
		c.Name = c.Number
	}
	if c.Avatar == "" {
		c.Avatar = c.ProfilePicURL
	}
	if c.Avatar == "" {
		c.Avatar = inbox.DefaultAvatar
	}
	return c
}
