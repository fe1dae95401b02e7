package store

import (
	"database/sql"
	"strconv"
	"time"
)

// SetState stores a sync checkpoint.
func (db *DB) SetState(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// State returns a sync checkpoint, or "" if unset.
func (db *DB) State(key string) (string, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// Touch records the current time under key.
func (db *DB) Touch(key string, at time.Time) error {
	return db.SetState(key, strconv.FormatInt(at.UnixMilli(), 10))
}

// TouchedAt returns the time recorded by Touch, or the zero time.
func (db *DB) TouchedAt(key string) (time.Time, error) {
	v, err := db.State(key)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
