// Package fixture is a synthetic backend with canned contacts and history.
// It is selected when no real transport is configured and in tests.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

// ErrRejected is returned by Send for recipients registered with Reject.
var ErrRejected = errors.New("fixture: recipient rejected")

// Options tunes the fixture backend.
type Options struct {
	// SendDelay simulates network latency on Send. Defaults to 500ms.
	SendDelay time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Backend implements backend.Backend with in-memory data.
type Backend struct {
	bus    *bus.Bus
	logger *zap.Logger
	opts   Options

	mu       sync.Mutex
	ready    bool
	contacts []backend.Contact
	rejected map[string]bool
}

// New creates a fixture backend.
func New(b *bus.Bus, logger *zap.Logger, opts Options) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SendDelay == 0 {
		opts.SendDelay = 500 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Backend{
		bus:      b,
		logger:   logger.Named("fixture"),
		opts:     opts,
		contacts: seedContacts(),
		rejected: make(map[string]bool),
	}
}

func (f *Backend) Name() string { return backend.Fixture }

// Start marks the backend ready and replays the seed history on the bus.
func (f *Backend) Start(ctx context.Context) error {
	f.mu.Lock()
	f.ready = true
	contacts := append([]backend.Contact(nil), f.contacts...)
	f.mu.Unlock()

	msgs := seedMessages(f.opts.Now())
	f.logger.Info("fixture backend ready",
		zap.Int("contacts", len(contacts)),
		zap.Int("messages", len(msgs)),
	)

	f.bus.Emit(bus.BackendReady, clientInfo())
	f.bus.Emit(bus.BackendContacts, contacts)
	for _, m := range msgs {
		f.bus.Emit(bus.BackendMessage, m)
	}
	return nil
}

func (f *Backend) Stop() {
	f.mu.Lock()
	f.ready = false
	f.mu.Unlock()
}

func (f *Backend) Contacts(ctx context.Context) ([]backend.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return nil, backend.ErrNotReady
	}
	return append([]backend.Contact(nil), f.contacts...), nil
}

// Send waits SendDelay and reports a mock_sent_<ms> id.
func (f *Backend) Send(ctx context.Context, to, text string) (backend.SendResult, error) {
	f.mu.Lock()
	ready, rejected := f.ready, f.rejected[to]
	f.mu.Unlock()
	if !ready {
		return backend.SendResult{}, backend.ErrNotReady
	}

	select {
	case <-time.After(f.opts.SendDelay):
	case <-ctx.Done():
		return backend.SendResult{}, ctx.Err()
	}
	if rejected {
		return backend.SendResult{}, fmt.Errorf("send to %s: %w", to, ErrRejected)
	}

	now := f.opts.Now()
	return backend.SendResult{
		ID:        fmt.Sprintf("mock_sent_%d", now.UnixMilli()),
		Timestamp: float64(now.UnixMilli()) / 1000,
		Ack:       1,
	}, nil
}

// Receive injects an inbound message as if a contact had sent it.
func (f *Backend) Receive(from, body string) inbox.Message {
	now := f.opts.Now()
	m := inbox.Message{
		ID:        fmt.Sprintf("mock_recv_%d", now.UnixNano()),
		Body:      body,
		From:      from,
		To:        SelfID,
		Timestamp: float64(now.UnixMilli()) / 1000,
		Kind:      inbox.KindText,
	}
	f.bus.Emit(bus.BackendMessage, m)
	return m
}

// Reject makes subsequent sends to id fail.
func (f *Backend) Reject(id string) {
	f.mu.Lock()
	f.rejected[id] = true
	f.mu.Unlock()
}
