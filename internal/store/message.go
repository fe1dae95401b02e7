package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

const messageColumns = `id, body, from_jid, to_jid, timestamp, from_me, has_media, kind`

const upsertMessage = `
	INSERT INTO messages (` + messageColumns + `, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		body = excluded.body,
		has_media = excluded.has_media,
		kind = excluded.kind`

// UpsertMessage inserts or updates a message (idempotent on id).
func (db *DB) UpsertMessage(m *inbox.Message) error {
	_, err := db.Exec(upsertMessage,
		m.ID, m.Body, m.From, m.To, m.Timestamp, m.FromMe, m.HasMedia, kindOrText(m.Kind), time.Now().UnixMilli())
	return err
}

// InsertMessages upserts a batch of messages in a single transaction.
func (db *DB) InsertMessages(msgs []inbox.Message) error {
	return db.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(upsertMessage)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now().UnixMilli()
		for _, m := range msgs {
			if _, err := stmt.Exec(m.ID, m.Body, m.From, m.To, m.Timestamp, m.FromMe, m.HasMedia, kindOrText(m.Kind), now); err != nil {
				return fmt.Errorf("upsert message %q: %w", m.ID, err)
			}
		}
		return nil
	})
}

// RecentMessages returns up to limit messages, newest first.
func (db *DB) RecentMessages(limit int) ([]inbox.Message, error) {
	if limit <= 0 {
		limit = MaxMessages
	}
	rows, err := db.Query(`
		SELECT `+messageColumns+`
		FROM messages
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []inbox.Message
	for rows.Next() {
		var m inbox.Message
		var kind string
		if err := rows.Scan(&m.ID, &m.Body, &m.From, &m.To, &m.Timestamp, &m.FromMe, &m.HasMedia, &kind); err != nil {
			return nil, err
		}
		m.Kind = inbox.Kind(kind)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// TrimMessages deletes all but the keep newest messages and returns how many
// rows were removed.
func (db *DB) TrimMessages(keep int) (int64, error) {
	if keep <= 0 {
		keep = MaxMessages
	}
	res, err := db.Exec(`
		DELETE FROM messages WHERE id NOT IN (
			SELECT id FROM messages ORDER BY timestamp DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("trim messages: %w", err)
	}
	return res.RowsAffected()
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

func kindOrText(k inbox.Kind) string {
	if k == "" {
		return string(inbox.KindText)
	}
	return string(k)
}
