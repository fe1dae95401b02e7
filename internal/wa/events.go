package wa

import (
	"context"
	"time"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

// identity is what the handler needs from the connected client to address
// messages. A nil identity leaves LIDs unresolved and the own address empty.
type identity interface {
	Self() types.JID
	ResolveLID(ctx context.Context, jid types.JID) types.JID
	PushName() string
	Platform() string
}

// EventHandler translates whatsmeow events into backend.* bus events. It
// never touches the session state machine; the daemon derives state from
// what is published here.
type EventHandler struct {
	bus    *bus.Bus
	id     identity
	logger *zap.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(b *bus.Bus, id identity, logger *zap.Logger) *EventHandler {
	return &EventHandler{bus: b, id: id, logger: logger}
}

// Handle is the main whatsmeow event handler function.
func (h *EventHandler) Handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		h.handleMessage(evt)
	case *events.Connected:
		h.logger.Info("WhatsApp connected")
		h.bus.Emit(bus.BackendReady, h.clientInfo())
	case *events.Disconnected:
		h.logger.Warn("WhatsApp disconnected")
		h.bus.Emit(bus.BackendDisconnected, nil)
	case *events.HistorySync:
		h.handleHistorySync(evt)
	case *events.LoggedOut:
		h.logger.Warn("WhatsApp logged out", zap.String("reason", evt.Reason.String()))
		h.bus.Emit(bus.BackendLoggedOut, evt.Reason.String())
	}
}

func (h *EventHandler) handleMessage(evt *events.Message) {
	if evt.Info.IsGroup || evt.Info.Chat.Server == types.BroadcastServer {
		return
	}
	info := evt.Info
	info.Chat = h.resolve(info.Chat)
	info.Sender = h.resolve(info.Sender)

	msg := ParseLiveMessage(&events.Message{Info: info, Message: evt.Message}, h.self())
	if msg.Body == "" && !msg.HasMedia {
		return
	}
	h.logger.Debug("message received",
		zap.String("id", msg.ID),
		zap.String("from", msg.From),
		zap.Bool("from_me", msg.FromMe),
	)
	h.bus.Emit(bus.BackendMessage, msg)
}

func (h *EventHandler) handleHistorySync(evt *events.HistorySync) {
	data := evt.Data
	if data == nil {
		return
	}
	self := ChatID(h.self())

	var msgs []inbox.Message
	for _, conv := range data.GetConversations() {
		jid, err := types.ParseJID(conv.GetID())
		if err != nil || jid.Server == types.GroupServer || jid.Server == types.BroadcastServer {
			continue
		}
		chat := ChatID(h.resolve(jid))
		for _, hm := range conv.GetMessages() {
			wmsg := hm.GetMessage()
			if wmsg == nil || wmsg.GetMessage() == nil {
				continue
			}
			content := wmsg.GetMessage()
			m := inbox.Message{
				ID:        wmsg.GetKey().GetID(),
				Body:      extractTextBody(content),
				Timestamp: float64(wmsg.GetMessageTimestamp()),
				FromMe:    wmsg.GetKey().GetFromMe(),
				HasMedia:  hasMedia(content),
				Kind:      detectMessageType(content),
			}
			if m.FromMe {
				m.From, m.To = self, chat
			} else {
				m.From, m.To = chat, self
			}
			if m.Body == "" && !m.HasMedia {
				continue
			}
			msgs = append(msgs, m)
		}
	}

	if len(msgs) > 0 {
		h.logger.Info("history sync batch", zap.Int("messages", len(msgs)))
		h.bus.Emit(bus.BackendHistory, msgs)
	}
}

// resolve strips device suffixes and maps LIDs to phone-number JIDs when
// the mapping is known.
func (h *EventHandler) resolve(jid types.JID) types.JID {
	jid = jid.ToNonAD()
	if h.id == nil {
		return jid
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.id.ResolveLID(ctx, jid)
}

func (h *EventHandler) self() types.JID {
	if h.id == nil {
		return types.EmptyJID
	}
	return h.id.Self()
}

func (h *EventHandler) clientInfo() map[string]any {
	if h.id == nil {
		return nil
	}
	return map[string]any{
		"pushname": h.id.PushName(),
		"wid":      ChatID(h.id.Self()),
		"platform": h.id.Platform(),
	}
}
