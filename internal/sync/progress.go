package sync

import (
	"time"

	"github.com/matheus3301/wpp-inbox/internal/store"
)

// Progress summarizes what has been persisted so far.
type Progress struct {
	Messages            int64     `json:"messages"`
	Contacts            int64     `json:"contacts"`
	LastMessageAt       time.Time `json:"lastMessageAt"`
	ContactsRefreshedAt time.Time `json:"contactsRefreshedAt"`
}

// Progress reads the current counts and checkpoints from the store.
func (e *Engine) Progress() (Progress, error) {
	var p Progress
	var err error
	if p.Messages, err = e.db.MessageCount(); err != nil {
		return p, err
	}
	if p.Contacts, err = e.db.ContactCount(); err != nil {
		return p, err
	}
	if p.LastMessageAt, err = e.db.TouchedAt(store.KeyLastMessageAt); err != nil {
		return p, err
	}
	p.ContactsRefreshedAt, err = e.db.TouchedAt(store.KeyContactsRefreshedAt)
	return p, err
}
