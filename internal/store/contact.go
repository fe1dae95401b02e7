package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

// ReplaceContacts swaps the whole directory for contacts in one transaction.
// Fetch order is kept in the position column.
func (db *DB) ReplaceContacts(contacts []inbox.Contact) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM contacts`); err != nil {
			return fmt.Errorf("clear contacts: %w", err)
		}
		now := time.Now().UnixMilli()
		for i, c := range contacts {
			if _, err := tx.Exec(`
				INSERT INTO contacts (id, name, push_name, number, is_group, profile_pic_url, position, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					push_name = excluded.push_name,
					number = excluded.number,
					is_group = excluded.is_group,
					profile_pic_url = excluded.profile_pic_url,
					updated_at = excluded.updated_at`,
				c.ID, c.Name, c.PushName, c.Number, c.IsGroup, c.ProfilePicURL, i, now); err != nil {
				return fmt.Errorf("insert contact %q: %w", c.ID, err)
			}
		}
		return nil
	})
}

// ListContacts returns the directory in fetch order.
func (db *DB) ListContacts() ([]inbox.Contact, error) {
	rows, err := db.Query(`
		SELECT id, name, push_name, number, is_group, profile_pic_url
		FROM contacts ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []inbox.Contact
	for rows.Next() {
		var c inbox.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.PushName, &c.Number, &c.IsGroup, &c.ProfilePicURL); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetContact returns a contact by id.
func (db *DB) GetContact(id string) (*inbox.Contact, error) {
	var c inbox.Contact
	err := db.QueryRow(`
		SELECT id, name, push_name, number, is_group, profile_pic_url
		FROM contacts WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.PushName, &c.Number, &c.IsGroup, &c.ProfilePicURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ContactCount returns the number of contacts in the directory.
func (db *DB) ContactCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&count)
	return count, err
}
