package wa

import (
	"strings"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

const userSuffix = "@c.us"

// ChatID converts a JID to the inbox address form: individual users become
// "<number>@c.us", groups and broadcast keep their server. Device suffixes
// are dropped.
func ChatID(jid types.JID) string {
	if jid.IsEmpty() {
		return ""
	}
	jid = jid.ToNonAD()
	switch jid.Server {
	case types.DefaultUserServer, types.LegacyUserServer:
		return jid.User + userSuffix
	case types.BroadcastServer:
		if jid.User == "status" {
			return inbox.BroadcastID
		}
	}
	return jid.String()
}

// ParseChatID is the inverse of ChatID.
func ParseChatID(id string) (types.JID, error) {
	if user, ok := strings.CutSuffix(id, userSuffix); ok {
		return types.NewJID(user, types.DefaultUserServer), nil
	}
	if !strings.Contains(id, "@") {
		return types.NewJID(strings.TrimPrefix(id, "+"), types.DefaultUserServer), nil
	}
	return types.ParseJID(id)
}

// NormalizeJID strips device/agent suffixes from a JID string.
func NormalizeJID(s string) string {
	if s == "" {
		return ""
	}
	jid, err := types.ParseJID(s)
	if err != nil || jid.IsEmpty() {
		return s
	}
	return jid.ToNonAD().String()
}

// ParseLiveMessage converts a one-to-one live message event. Outgoing
// messages are addressed from self to the chat, incoming ones from the chat
// to self. LIDs in evt should already be resolved.
func ParseLiveMessage(evt *events.Message, self types.JID) inbox.Message {
	from, to := evt.Info.Chat, self
	if evt.Info.IsFromMe {
		from, to = self, evt.Info.Chat
	}
	return inbox.Message{
		ID:        evt.Info.ID,
		Body:      extractTextBody(evt.Message),
		From:      ChatID(from),
		To:        ChatID(to),
		Timestamp: float64(evt.Info.Timestamp.UnixMilli()) / 1000,
		FromMe:    evt.Info.IsFromMe,
		HasMedia:  hasMedia(evt.Message),
		Kind:      detectMessageType(evt.Message),
	}
}

func extractTextBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return vid.GetCaption()
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		if c := doc.GetCaption(); c != "" {
			return c
		}
		return doc.GetFileName()
	}
	return ""
}

func detectMessageType(msg *waE2E.Message) inbox.Kind {
	if msg == nil {
		return inbox.KindOther
	}
	switch {
	case msg.GetConversation() != "" || msg.GetExtendedTextMessage() != nil:
		return inbox.KindText
	case msg.GetImageMessage() != nil:
		return inbox.KindImage
	case msg.GetVideoMessage() != nil:
		return inbox.KindVideo
	case msg.GetAudioMessage() != nil:
		return inbox.KindAudio
	case msg.GetDocumentMessage() != nil:
		return inbox.KindDocument
	case msg.GetStickerMessage() != nil:
		return inbox.KindSticker
	default:
		return inbox.KindOther
	}
}

func hasMedia(msg *waE2E.Message) bool {
	switch detectMessageType(msg) {
	case inbox.KindImage, inbox.KindVideo, inbox.KindAudio, inbox.KindDocument, inbox.KindSticker:
		return true
	}
	return false
}
