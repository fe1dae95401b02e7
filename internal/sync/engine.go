// Package sync persists what backends report: messages and contact
// directories arriving on the bus are written to the store and re-announced
// for clients.
package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/store"
)

// ContactSource is anything that can produce a full contact directory.
type ContactSource interface {
	Contacts(ctx context.Context) ([]inbox.Contact, error)
}

// Engine handles idempotent ingestion into the store.
// It subscribes to "backend.*" events on the bus and processes them.
type Engine struct {
	db          *store.DB
	bus         *bus.Bus
	logger      *zap.Logger
	maxMessages int
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewEngine creates a new sync engine. maxMessages bounds the stored
// history; zero means store.MaxMessages.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger, maxMessages int) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxMessages <= 0 {
		maxMessages = store.MaxMessages
	}
	return &Engine{
		db:          db,
		bus:         b,
		logger:      logger,
		maxMessages: maxMessages,
	}
}

// Start subscribes to backend events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	ch, unsub := e.bus.Subscribe(bus.NSBackend, 256)

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and waits for the event loop to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.BackendMessage:
		msg, ok := evt.Payload.(inbox.Message)
		if !ok {
			return
		}
		if err := e.IngestMessage(msg); err != nil {
			e.logger.Error("failed to ingest message", zap.Error(err), zap.String("msg_id", msg.ID))
		}
	case bus.BackendHistory:
		msgs, ok := evt.Payload.([]inbox.Message)
		if !ok {
			return
		}
		if err := e.IngestHistoryBatch(msgs); err != nil {
			e.logger.Error("failed to ingest history batch", zap.Error(err), zap.Int("count", len(msgs)))
		} else {
			e.logger.Info("history batch ingested", zap.Int("messages", len(msgs)))
		}
	case bus.BackendContacts:
		contacts, ok := evt.Payload.([]inbox.Contact)
		if !ok {
			return
		}
		if err := e.ReplaceContacts(contacts); err != nil {
			e.logger.Error("failed to replace contacts", zap.Error(err), zap.Int("count", len(contacts)))
		}
	}
}

// IngestMessage stores a single message (idempotent on id), trims the
// table back to the retention limit and announces the message.
func (e *Engine) IngestMessage(msg inbox.Message) error {
	if err := e.db.UpsertMessage(&msg); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	if err := e.advance(msg.Timestamp); err != nil {
		e.logger.Warn("failed to record checkpoint", zap.Error(err))
	}
	if _, err := e.Trim(); err != nil {
		e.logger.Warn("failed to trim messages", zap.Error(err))
	}
	e.bus.Emit(bus.MessageUpserted, msg)
	return nil
}

// IngestHistoryBatch stores a batch of messages in a transaction and trims
// the table back to the retention limit.
func (e *Engine) IngestHistoryBatch(msgs []inbox.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := e.db.InsertMessages(msgs); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	var newest float64
	for _, m := range msgs {
		newest = max(newest, m.Timestamp)
	}
	if err := e.advance(newest); err != nil {
		e.logger.Warn("failed to record checkpoint", zap.Error(err))
	}
	if _, err := e.Trim(); err != nil {
		return err
	}
	for _, m := range msgs {
		e.bus.Emit(bus.MessageUpserted, m)
	}
	return nil
}

// ReplaceContacts swaps the stored directory. Contacts are never merged.
func (e *Engine) ReplaceContacts(contacts []inbox.Contact) error {
	if err := e.db.ReplaceContacts(contacts); err != nil {
		return fmt.Errorf("replace contacts: %w", err)
	}
	if err := e.db.Touch(store.KeyContactsRefreshedAt, time.Now()); err != nil {
		e.logger.Warn("failed to record checkpoint", zap.Error(err))
	}
	e.bus.Emit(bus.ContactsReplaced, contacts)
	return nil
}

// RefreshContacts fetches a fresh directory from src and replaces the
// stored one. A failed fetch leaves the previous directory in place.
func (e *Engine) RefreshContacts(ctx context.Context, src ContactSource) error {
	contacts, err := src.Contacts(ctx)
	if err != nil {
		return fmt.Errorf("fetch contacts: %w", err)
	}
	return e.ReplaceContacts(contacts)
}

// Trim drops stored messages beyond the retention limit.
func (e *Engine) Trim() (int64, error) {
	n, err := e.db.TrimMessages(e.maxMessages)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.logger.Debug("trimmed messages", zap.Int64("removed", n))
	}
	return n, nil
}

// advance moves the last-message checkpoint forward, never back.
func (e *Engine) advance(ts float64) error {
	at := inbox.Time(ts)
	prev, err := e.db.TouchedAt(store.KeyLastMessageAt)
	if err != nil {
		return err
	}
	if !at.After(prev) {
		return nil
	}
	return e.db.Touch(store.KeyLastMessageAt, at)
}
