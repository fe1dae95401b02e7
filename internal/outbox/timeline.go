// Package outbox keeps a client's merged view of the inbox and performs
// optimistic sends against it.
package outbox

import (
	"slices"
	"sync"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

// Timeline is the locally held message set plus the contact directory it
// is annotated against. Safe for concurrent use.
type Timeline struct {
	mu       sync.Mutex
	msgs     []inbox.Message
	contacts []inbox.Contact
	dir      inbox.Directory
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{dir: inbox.Directory{}}
}

// Apply reconciles a freshly fetched server list into the timeline and
// returns the merged set in display order.
func (t *Timeline) Apply(fetched []inbox.Message) []inbox.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = inbox.Reconcile(t.msgs, fetched, t.dir)
	return t.sortedLocked()
}

// ReplaceContacts swaps the directory. Existing annotations are kept.
func (t *Timeline) ReplaceContacts(contacts []inbox.Contact) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.contacts = slices.Clone(contacts)
	t.dir = inbox.NewDirectory(contacts)
}

// Insert adds a locally created message.
func (t *Timeline) Insert(m inbox.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = append(t.msgs, m)
}

// Remove drops the message with the given id and reports whether it was
// present.
func (t *Timeline) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.msgs)
	t.msgs = inbox.RemoveByID(t.msgs, id)
	return len(t.msgs) != n
}

// Messages returns the merged set in display order.
func (t *Timeline) Messages() []inbox.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sortedLocked()
}

// Contacts returns the directory in fetch order.
func (t *Timeline) Contacts() []inbox.Contact {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.contacts)
}

// Prioritized returns the contacts ordered for the new-message picker.
func (t *Timeline) Prioritized() []inbox.Contact {
	t.mu.Lock()
	defer t.mu.Unlock()
	return inbox.PrioritizeContacts(t.contacts, t.msgs)
}

// Frequent returns up to n contacts that have history, in fetch order.
func (t *Timeline) Frequent(n int) []inbox.Contact {
	t.mu.Lock()
	defer t.mu.Unlock()
	return inbox.FrequentContacts(t.contacts, t.msgs, n)
}

// Resolve returns the display identity for id.
func (t *Timeline) Resolve(id string) inbox.Annotation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return inbox.Resolve(id, t.dir)
}

// Speaker returns the name shown above m.
func (t *Timeline) Speaker(m inbox.Message) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return inbox.Speaker(m, t.dir)
}

func (t *Timeline) sortedLocked() []inbox.Message {
	out := slices.Clone(t.msgs)
	inbox.SortTimeline(out)
	return out
}
