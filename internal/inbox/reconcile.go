package inbox

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// DuplicateWindow is the timestamp tolerance, in seconds, under which two
// messages with the same body are treated as the same message.
const DuplicateWindow = 5.0

// Pending id prefixes for locally created, not yet confirmed messages.
const (
	PrefixReply = "reply_"
	PrefixNew   = "new_"
)

// IsPending reports whether id was generated locally.
func IsPending(id string) bool {
	return strings.HasPrefix(id, PrefixReply) || strings.HasPrefix(id, PrefixNew)
}

// NewPendingID returns a fresh local id with the given prefix.
func NewPendingID(prefix string) string {
	return prefix + uuid.NewString()
}

// Reconcile merges a freshly fetched server list into the previous merged
// set. Annotations resolved earlier are carried forward by id, outgoing
// messages are attributed to their recipient, unconfirmed local messages
// are kept, and duplicates are collapsed. The result is not sorted.
//
// Reconcile does not modify its inputs.
func Reconcile(prev, fetched []Message, dir Directory) []Message {
	byID := make(map[string]Message, len(prev))
	for _, m := range prev {
		byID[m.ID] = m
	}

	seen := make(map[string]struct{}, len(fetched))
	out := make([]Message, 0, len(fetched)+len(prev))
	for _, m := range fetched {
		seen[m.ID] = struct{}{}
		if old, ok := byID[m.ID]; ok && old.Annotated() {
			m.ReplyTo = cloneAnnotation(old.ReplyTo)
			m.SentTo = cloneAnnotation(old.SentTo)
		} else if m.FromMe && !m.Annotated() {
			a := Resolve(m.To, dir)
			m.SentTo = &a
		}
		out = append(out, m)
	}

	for _, m := range prev {
		if !IsPending(m.ID) {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		out = append(out, m)
	}

	return Dedup(out)
}

// Dedup keeps a message only if no earlier message in msgs has the same
// body within DuplicateWindow seconds. Earlier messages are compared whether
// or not they were themselves kept.
func Dedup(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for i, m := range msgs {
		dup := false
		for j := 0; j < i; j++ {
			if isDuplicate(msgs[j], m) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m)
		}
	}
	return out
}

// RemoveByID returns msgs without the message whose id matches. Only the
// first match is removed.
func RemoveByID(msgs []Message, id string) []Message {
	out := make([]Message, 0, len(msgs))
	removed := false
	for _, m := range msgs {
		if !removed && m.ID == id {
			removed = true
			continue
		}
		out = append(out, m)
	}
	return out
}

func isDuplicate(a, b Message) bool {
	return math.Abs(a.Timestamp-b.Timestamp) < DuplicateWindow && a.Body == b.Body
}

func cloneAnnotation(a *Annotation) *Annotation {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
