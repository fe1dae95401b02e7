// Package service is the process-wide handle on the inbox. It is built once
// at daemon start and shared by the HTTP API and the gRPC control plane.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/outbox"
	"github.com/matheus3301/wpp-inbox/internal/status"
	"github.com/matheus3301/wpp-inbox/internal/store"
	intsync "github.com/matheus3301/wpp-inbox/internal/sync"
)

// ErrInvalidArgument is returned by Send when the recipient or text is
// missing.
var ErrInvalidArgument = errors.New("to and message are required")

// Options tunes what the service returns.
type Options struct {
	Limits      inbox.Limits
	MaxMessages int
}

// Inbox serves status, contacts, messages and sends for one backend.
type Inbox struct {
	backend   backend.Backend
	db        *store.DB
	engine    *intsync.Engine
	machine   *status.Machine
	bus       *bus.Bus
	logger    *zap.Logger
	opts      Options
	startedAt time.Time
}

// New creates the service.
func New(b backend.Backend, db *store.DB, engine *intsync.Engine, machine *status.Machine, eb *bus.Bus, logger *zap.Logger, opts Options) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Limits.Conversations <= 0 || opts.Limits.PerConversation <= 0 {
		opts.Limits = inbox.DefaultLimits
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = store.MaxMessages
	}
	return &Inbox{
		backend:   b,
		db:        db,
		engine:    engine,
		machine:   machine,
		bus:       eb,
		logger:    logger,
		opts:      opts,
		startedAt: time.Now(),
	}
}

// Backend returns the active backend.
func (s *Inbox) Backend() backend.Backend { return s.backend }

// Uptime reports how long the service has existed.
func (s *Inbox) Uptime() time.Duration { return time.Since(s.startedAt) }

// Status reports readiness, pairing state and client info.
func (s *Inbox) Status() status.Report {
	return s.machine.Report(s.backend.Name())
}

// Contacts returns the stored directory ordered for the new-message
// picker. An empty store is filled from the backend first when it is ready.
func (s *Inbox) Contacts(ctx context.Context) ([]inbox.Contact, error) {
	contacts, err := s.db.ListContacts()
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	if len(contacts) == 0 && s.machine.Current() == status.Ready {
		if err := s.engine.RefreshContacts(ctx, s.backend); err != nil {
			s.logger.Warn("initial contact fetch failed", zap.Error(err))
		} else if contacts, err = s.db.ListContacts(); err != nil {
			return nil, fmt.Errorf("list contacts: %w", err)
		}
	}

	msgs, err := s.db.RecentMessages(s.opts.MaxMessages)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	for i := range contacts {
		contacts[i] = backend.FormatContact(contacts[i])
	}
	return inbox.PrioritizeContacts(contacts, msgs), nil
}

// Messages returns the recent one-to-one messages, capped per conversation
// and sorted oldest first.
func (s *Inbox) Messages(_ context.Context) ([]inbox.Message, error) {
	msgs, err := s.db.RecentMessages(s.opts.MaxMessages)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return inbox.RecentConversations(msgs, s.opts.Limits), nil
}

// Send delivers text through the backend, records the attempt in the
// outbox and stores the sent message.
func (s *Inbox) Send(ctx context.Context, to, text string) (backend.SendResult, error) {
	to = strings.TrimSpace(to)
	if to == "" || strings.TrimSpace(text) == "" {
		return backend.SendResult{}, ErrInvalidArgument
	}
	if s.machine.Current() != status.Ready {
		return backend.SendResult{}, backend.ErrNotReady
	}
	to = backend.ChatID(to)

	clientMsgID := uuid.NewString()
	if err := s.db.QueueOutbox(clientMsgID, to, text); err != nil {
		return backend.SendResult{}, fmt.Errorf("queue outbox: %w", err)
	}

	res, err := s.backend.Send(ctx, to, text)
	if err != nil {
		s.logger.Error("failed to send message", zap.Error(err), zap.String("client_msg_id", clientMsgID))
		if merr := s.db.MarkOutboxFailed(clientMsgID, err.Error()); merr != nil {
			s.logger.Error("failed to mark failed", zap.Error(merr))
		}
		s.bus.Emit(bus.MessageSendFailed, outbox.Ack{ClientMsgID: clientMsgID, To: to, Error: err.Error()})
		return backend.SendResult{}, err
	}

	if err := s.db.MarkOutboxSent(clientMsgID, res.ID); err != nil {
		s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", clientMsgID))
	}
	ts := res.Timestamp
	if ts == 0 {
		ts = float64(time.Now().UnixMilli()) / 1000
	}
	sent := inbox.Message{
		ID:        res.ID,
		Body:      text,
		From:      s.selfID(),
		To:        to,
		Timestamp: ts,
		FromMe:    true,
		Kind:      inbox.KindText,
	}
	if err := s.engine.IngestMessage(sent); err != nil {
		s.logger.Warn("failed to store sent message", zap.Error(err))
	}

	s.logger.Info("message sent", zap.String("client_msg_id", clientMsgID), zap.String("server_msg_id", res.ID))
	s.bus.Emit(bus.MessageSendAck, outbox.Ack{ClientMsgID: clientMsgID, To: to, Result: &res})
	return res, nil
}

// SyncProgress is the body of the sync-progress endpoint.
type SyncProgress struct {
	ContactsLoaded int64        `json:"contactsLoaded"`
	MessagesLoaded int64        `json:"messagesLoaded"`
	IsLoading      bool         `json:"isLoading"`
	Status         status.State `json:"status"`

	LastMessageAt       *time.Time `json:"lastMessageAt,omitempty"`
	ContactsRefreshedAt *time.Time `json:"contactsRefreshedAt,omitempty"`
}

// SyncProgress reports how much has been loaded. Loading is true until the
// backend is ready and a first contact directory has arrived.
func (s *Inbox) SyncProgress() (SyncProgress, error) {
	p, err := s.engine.Progress()
	if err != nil {
		return SyncProgress{}, err
	}
	state := s.machine.Current()
	out := SyncProgress{
		ContactsLoaded: p.Contacts,
		MessagesLoaded: p.Messages,
		IsLoading:      state != status.Ready || p.ContactsRefreshedAt.IsZero(),
		Status:         state,
	}
	if !p.LastMessageAt.IsZero() {
		out.LastMessageAt = &p.LastMessageAt
	}
	if !p.ContactsRefreshedAt.IsZero() {
		out.ContactsRefreshedAt = &p.ContactsRefreshedAt
	}
	return out, nil
}

// Pair restarts QR pairing on backends that support it.
func (s *Inbox) Pair(ctx context.Context) error {
	p, ok := s.backend.(backend.Pairer)
	if !ok {
		return backend.ErrUnsupported
	}
	return p.Pair(ctx)
}

// MarkRead marks an inbound message read on backends that support it.
func (s *Inbox) MarkRead(ctx context.Context, messageID string) error {
	r, ok := s.backend.(backend.ReadMarker)
	if !ok {
		return backend.ErrUnsupported
	}
	return r.MarkRead(ctx, messageID)
}

// Webhook returns the backend's webhook receiver, if it has one.
func (s *Inbox) Webhook() (backend.Webhook, bool) {
	w, ok := s.backend.(backend.Webhook)
	return w, ok
}

// RefreshContacts replaces the stored directory with a fresh fetch.
func (s *Inbox) RefreshContacts(ctx context.Context) error {
	if s.machine.Current() != status.Ready {
		return backend.ErrNotReady
	}
	return s.engine.RefreshContacts(ctx, s.backend)
}

func (s *Inbox) selfID() string {
	wid, _ := s.Status().ClientInfo["wid"].(string)
	return wid
}
