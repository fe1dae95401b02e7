// Package backend defines the capability every WhatsApp transport offers to
// the daemon. Exactly one implementation is constructed at startup.
//
// Backends report asynchronous happenings (pairing codes, readiness,
// inbound messages, refreshed contacts) on the bus under the "backend."
// namespace rather than through callbacks.
package backend

import (
	"context"
	"errors"
)

var (
	// ErrNotReady is returned by Send and Contacts before the backend has
	// finished connecting.
	ErrNotReady = errors.New("backend not ready")
	// ErrUnsupported is returned for operations a backend cannot perform.
	ErrUnsupported = errors.New("operation not supported by backend")
)

// Names of the available backends.
const (
	Automation = "automation"
	Cloud      = "cloud"
	Fixture    = "fixture"
)

// Backend is a WhatsApp transport.
type Backend interface {
	Name() string
	// Start begins connecting. It returns once the connection attempt is
	// under way; readiness is reported on the bus.
	Start(ctx context.Context) error
	Stop()
	// Contacts fetches the full directory. Callers replace, never merge.
	Contacts(ctx context.Context) ([]Contact, error)
	Send(ctx context.Context, to, text string) (SendResult, error)
}

// Pairer is implemented by backends that pair through a QR code and can
// restart pairing after it timed out.
type Pairer interface {
	Pair(ctx context.Context) error
}

// ReadMarker is implemented by backends that can mark inbound messages read.
type ReadMarker interface {
	MarkRead(ctx context.Context, messageID string) error
}

// Webhook is implemented by backends that receive inbound traffic over HTTP.
type Webhook interface {
	// VerifyChallenge answers the subscription handshake. ok is false when
	// mode or token do not match.
	VerifyChallenge(mode, token, challenge string) (resp string, ok bool)
	// HandleWebhook validates and ingests one delivery. signature is the raw
	// X-Hub-Signature-256 header value, possibly empty.
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// SendResult is what a successful send reports.
type SendResult struct {
	ID        string  `json:"id"`
	Timestamp float64 `json:"timestamp"`
	Ack       int     `json:"ack"`
}
