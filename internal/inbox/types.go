// Package inbox holds the pure core of the unified inbox: identity
// resolution, timeline reconciliation and the display-side ranking rules.
// Nothing in this package performs I/O.
package inbox

import "strings"

// Kind is the message content type.
type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
	KindVideo    Kind = "video"
	KindSticker  Kind = "sticker"
	KindOther    Kind = "other"
)

const (
	// BroadcastID is the status broadcast pseudo-chat.
	BroadcastID = "status@broadcast"
	groupSuffix = "@g.us"
)

// Contact is a directory entry as reported by a backend.
type Contact struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	PushName      string `json:"pushname,omitempty"`
	Number        string `json:"number"`
	IsGroup       bool   `json:"isGroup"`
	ProfilePicURL string `json:"profilePicUrl,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	LastSeen      string `json:"lastSeen,omitempty"`
}

// Annotation is the resolved counterparty attached to a message by the
// reconciler or by the composer. Backends never set it.
type Annotation struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Message is a single chat message. Timestamp is seconds since epoch.
type Message struct {
	ID        string  `json:"id"`
	Body      string  `json:"body"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Timestamp float64 `json:"timestamp"`
	FromMe    bool    `json:"fromMe"`
	HasMedia  bool    `json:"hasMedia"`
	Kind      Kind    `json:"type"`

	ReplyTo *Annotation `json:"replyTo,omitempty"`
	SentTo  *Annotation `json:"sentTo,omitempty"`
}

// Key returns the conversation key: the recipient for outgoing messages,
// the sender otherwise.
func (m Message) Key() string {
	if m.FromMe {
		return m.To
	}
	return m.From
}

// Annotated reports whether a counterparty has already been resolved.
func (m Message) Annotated() bool {
	return (m.ReplyTo != nil && m.ReplyTo.Name != "") || (m.SentTo != nil && m.SentTo.Name != "")
}

// Counterparty returns the attached annotation, preferring the reply target.
func (m Message) Counterparty() (Annotation, bool) {
	if m.ReplyTo != nil && m.ReplyTo.Name != "" {
		return *m.ReplyTo, true
	}
	if m.SentTo != nil && m.SentTo.Name != "" {
		return *m.SentTo, true
	}
	return Annotation{}, false
}

// IsBroadcast reports whether id is the status broadcast chat.
func IsBroadcast(id string) bool { return id == BroadcastID }

// IsGroup reports whether id addresses a group chat.
func IsGroup(id string) bool { return strings.HasSuffix(id, groupSuffix) }

// Directory indexes contacts by id.
type Directory map[string]Contact

// NewDirectory builds a Directory. Later duplicates win.
func NewDirectory(contacts []Contact) Directory {
	dir := make(Directory, len(contacts))
	for _, c := range contacts {
		dir[c.ID] = c
	}
	return dir
}
