package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Namespaces for Subscribe.
const (
	NSBackend  = "backend."
	NSMessage  = "message."
	NSContacts = "contacts."
	NSSession  = "session."
)

// Event kinds. Payload types are noted per kind.
const (
	// BackendQR carries the raw pairing code string.
	BackendQR = "backend.qr"
	// BackendReady carries the backend's client info map, if any.
	BackendReady        = "backend.ready"
	BackendDisconnected = "backend.disconnected"
	BackendLoggedOut    = "backend.logged_out"
	BackendAuthTimeout  = "backend.auth_timeout"
	// BackendMessage carries an inbox.Message.
	BackendMessage = "backend.message"
	// BackendHistory carries []inbox.Message from an initial history sync.
	BackendHistory = "backend.history"
	// BackendContacts carries []inbox.Contact.
	BackendContacts = "backend.contacts"

	MessageUpserted   = "message.upserted"
	MessageSendAck    = "message.send_ack"
	MessageSendFailed = "message.send_failed"

	ContactsReplaced = "contacts.replaced"

	SessionStatusChanged = "session.status_changed"
)
