package rpc

import (
	"encoding/json"
	"time"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

// Empty is the request or reply of calls that carry nothing.
type Empty struct{}

type ContactsReply struct {
	Contacts []inbox.Contact `json:"contacts"`
}

type MessagesReply struct {
	Messages []inbox.Message `json:"messages"`
}

type SendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// WatchRequest selects bus namespaces to stream. An empty list streams
// message, contact and session events.
type WatchRequest struct {
	Namespaces []string `json:"namespaces,omitempty"`
}

// Event is a bus event with its payload already encoded.
type Event struct {
	ID        string          `json:"id"`
	Session   string          `json:"session"`
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}
