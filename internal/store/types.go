package store

// Send statuses recorded in the outbox.
const (
	SendQueued = "queued"
	SendSent   = "sent"
	SendFailed = "failed"
)

// MaxMessages is the default number of messages retained by TrimMessages.
const MaxMessages = 1000

// OutboxEntry is one outgoing send attempt.
type OutboxEntry struct {
	ClientMsgID  string
	To           string
	Body         string
	Status       string
	ErrorMessage string
	ServerMsgID  string
	CreatedAt    int64
}

// Sync state keys.
const (
	KeyLastMessageAt       = "last_message_at"
	KeyContactsRefreshedAt = "contacts_refreshed_at"
)
