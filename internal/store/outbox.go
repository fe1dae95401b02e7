package store

import "time"

// QueueOutbox records a send attempt.
func (db *DB) QueueOutbox(clientMsgID, to, body string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (client_msg_id, to_jid, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		clientMsgID, to, body, SendQueued, now, now)
	return err
}

// MarkOutboxSent updates an outbox entry to 'sent' with the server message ID.
func (db *DB) MarkOutboxSent(clientMsgID, serverMsgID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = ?, server_msg_id = ?, updated_at = ? WHERE client_msg_id = ?`,
		SendSent, serverMsgID, now, clientMsgID)
	return err
}

// MarkOutboxFailed updates an outbox entry to 'failed' with an error message.
func (db *DB) MarkOutboxFailed(clientMsgID, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = ?, error_message = ?, updated_at = ? WHERE client_msg_id = ?`,
		SendFailed, errMsg, now, clientMsgID)
	return err
}

// PendingOutbox returns entries still queued, oldest first. Entries left
// queued across a restart are reported by the daemon on startup.
func (db *DB) PendingOutbox() ([]OutboxEntry, error) {
	return db.listOutbox(`WHERE status = 'queued' ORDER BY created_at ASC`)
}

// RecentOutbox returns the newest limit entries.
func (db *DB) RecentOutbox(limit int) ([]OutboxEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.listOutbox(`ORDER BY created_at DESC LIMIT ?`, limit)
}

func (db *DB) listOutbox(tail string, args ...any) ([]OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT client_msg_id, to_jid, body, status, error_message, server_msg_id, created_at
		FROM outbox `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ClientMsgID, &e.To, &e.Body, &e.Status, &e.ErrorMessage, &e.ServerMsgID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
