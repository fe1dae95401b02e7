package outbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

// ErrEmpty is returned by Send for a blank recipient or body.
var ErrEmpty = errors.New("outbox: recipient and message are required")

// Dispatcher delivers a text message, typically through the daemon.
type Dispatcher interface {
	Send(ctx context.Context, to, text string) (backend.SendResult, error)
}

// Mode selects how an optimistic message is annotated.
type Mode int

const (
	// Reply answers a message in the timeline.
	Reply Mode = iota
	// New starts a conversation from the contact picker.
	New
)

// Ack is the payload of message.send_ack and message.send_failed.
type Ack struct {
	ClientMsgID string              `json:"clientMsgId"`
	To          string              `json:"to"`
	Result      *backend.SendResult `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Sender inserts messages into a Timeline before they are confirmed and
// rolls them back when delivery fails.
type Sender struct {
	timeline *Timeline
	dispatch Dispatcher
	bus      *bus.Bus
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time

	wg sync.WaitGroup
}

// NewSender creates a sender. Outcomes are published on b.
func NewSender(tl *Timeline, d Dispatcher, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		timeline: tl,
		dispatch: d,
		bus:      b,
		logger:   logger,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

// Send inserts the optimistic message and returns it immediately; delivery
// happens in the background. The send outlives ctx cancellation but not
// the sender timeout.
func (s *Sender) Send(ctx context.Context, mode Mode, to, body string) (inbox.Message, error) {
	to = backend.ChatID(strings.TrimSpace(to))
	if to == backend.UserSuffix || strings.TrimSpace(body) == "" {
		return inbox.Message{}, ErrEmpty
	}

	prefix := inbox.PrefixReply
	if mode == New {
		prefix = inbox.PrefixNew
	}
	who := s.timeline.Resolve(to)
	m := inbox.Message{
		ID:        inbox.NewPendingID(prefix),
		Body:      body,
		To:        to,
		Timestamp: float64(s.now().UnixMilli()) / 1000,
		FromMe:    true,
		Kind:      inbox.KindText,
	}
	if mode == New {
		m.SentTo = &who
	} else {
		m.ReplyTo = &who
	}
	s.timeline.Insert(m)

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.deliver(dctx, m)
	}()
	return m, nil
}

func (s *Sender) deliver(ctx context.Context, m inbox.Message) {
	res, err := s.dispatch.Send(ctx, m.To, m.Body)
	if err != nil {
		s.timeline.Remove(m.ID)
		s.logger.Warn("send failed, rolled back", zap.String("client_msg_id", m.ID), zap.Error(err))
		s.bus.Emit(bus.MessageSendFailed, Ack{ClientMsgID: m.ID, To: m.To, Error: err.Error()})
		return
	}
	s.logger.Info("message sent", zap.String("client_msg_id", m.ID), zap.String("server_msg_id", res.ID))
	s.bus.Emit(bus.MessageSendAck, Ack{ClientMsgID: m.ID, To: m.To, Result: &res})
}

// Wait blocks until all in-flight sends have finished.
func (s *Sender) Wait() {
	s.wg.Wait()
}
