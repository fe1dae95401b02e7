package cloudapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
)

// ErrBadSignature is returned when an app secret is configured and the
// delivery's X-Hub-Signature-256 does not match.
var ErrBadSignature = errors.New("webhook signature mismatch")

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string       `json:"field"`
			Value webhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []incomingMessage `json:"messages"`
}

type incomingMessage struct {
	ID        string     `json:"id"`
	From      string     `json:"from"`
	Timestamp string     `json:"timestamp"`
	Type      string     `json:"type"`
	Text      *textBody  `json:"text,omitempty"`
	Image     *mediaBody `json:"image,omitempty"`
	Video     *mediaBody `json:"video,omitempty"`
	Audio     *mediaBody `json:"audio,omitempty"`
	Document  *mediaBody `json:"document,omitempty"`
	Sticker   *mediaBody `json:"sticker,omitempty"`
}

type mediaBody struct {
	ID       string `json:"id"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// VerifyChallenge implements the hub.mode=subscribe handshake.
func (c *Client) VerifyChallenge(mode, token, challenge string) (string, bool) {
	if mode != "subscribe" || c.cfg.VerifyToken == "" || token != c.cfg.VerifyToken {
		return "", false
	}
	return challenge, true
}

// HandleWebhook checks the signature, converts inbound messages and
// publishes them on the bus. Senders learned from the delivery are added
// to the directory.
func (c *Client) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if err := c.verifySignature(body, signature); err != nil {
		return err
	}

	msgs, contacts, err := ParseWebhook(body)
	if err != nil {
		return err
	}

	if c.learn(contacts) {
		c.bus.Emit(bus.BackendContacts, c.snapshotContacts())
	}
	for _, m := range msgs {
		c.logger.Info("webhook message",
			zap.String("id", m.ID),
			zap.String("from", m.From),
			zap.String("type", string(m.Kind)),
		)
		if IsGreeting(m.Body) {
			c.logger.Info("greeting received; auto-reply candidate", zap.String("from", m.From))
		}
		c.bus.Emit(bus.BackendMessage, m)
	}
	return nil
}

// ParseWebhook extracts inbound messages and sender profiles from a
// delivery. Status callbacks and non-message fields are ignored.
func ParseWebhook(body []byte) ([]inbox.Message, []backend.Contact, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, nil, fmt.Errorf("decode webhook: %w", err)
	}

	var msgs []inbox.Message
	var contacts []backend.Contact
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "" && change.Field != "messages" {
				continue
			}
			v := change.Value
			self := v.Metadata.DisplayPhoneNumber
			if self == "" {
				self = v.Metadata.PhoneNumberID
			}
			for _, pc := range v.Contacts {
				contacts = append(contacts, backend.FormatContact(backend.Contact{
					ID:       backend.ChatID(pc.WaID),
					Name:     pc.Profile.Name,
					PushName: pc.Profile.Name,
					Number:   pc.WaID,
				}))
			}
			for _, im := range v.Messages {
				msgs = append(msgs, convertIncoming(im, self))
			}
		}
	}
	return msgs, contacts, nil
}

func convertIncoming(im incomingMessage, self string) inbox.Message {
	ts, _ := strconv.ParseFloat(im.Timestamp, 64)
	m := inbox.Message{
		ID:        im.ID,
		From:      backend.ChatID(im.From),
		To:        backend.ChatID(strings.NewReplacer(" ", "", "-", "").Replace(self)),
		Timestamp: ts,
	}
	switch im.Type {
	case "text":
		m.Kind = inbox.KindText
		if im.Text != nil {
			m.Body = im.Text.Body
		}
	case "image":
		m.Kind, m.HasMedia = inbox.KindImage, true
		m.Body = caption(im.Image)
	case "video":
		m.Kind, m.HasMedia = inbox.KindVideo, true
		m.Body = caption(im.Video)
	case "audio":
		m.Kind, m.HasMedia = inbox.KindAudio, true
	case "document":
		m.Kind, m.HasMedia = inbox.KindDocument, true
		m.Body = caption(im.Document)
		if m.Body == "" && im.Document != nil {
			m.Body = im.Document.Filename
		}
	case "sticker":
		m.Kind, m.HasMedia = inbox.KindSticker, true
	default:
		m.Kind = inbox.KindOther
	}
	return m
}

func caption(b *mediaBody) string {
	if b == nil {
		return ""
	}
	return b.Caption
}

// IsGreeting reports whether body contains "hello", case-insensitively.
func IsGreeting(body string) bool {
	return strings.Contains(strings.ToLower(body), "hello")
}

// Sign computes the X-Hub-Signature-256 value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) verifySignature(body []byte, signature string) error {
	if c.cfg.AppSecret == "" {
		return nil
	}
	if signature == "" {
		return fmt.Errorf("%w: missing header", ErrBadSignature)
	}
	if !hmac.Equal([]byte(signature), []byte(Sign(c.cfg.AppSecret, body))) {
		return ErrBadSignature
	}
	return nil
}

func (c *Client) learn(contacts []backend.Contact) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := false
	for _, ct := range contacts {
		if i, ok := c.seen[ct.ID]; ok {
			if c.contacts[i].Name != ct.Name {
				c.contacts[i] = ct
				changed = true
			}
			continue
		}
		c.seen[ct.ID] = len(c.contacts)
		c.contacts = append(c.contacts, ct)
		changed = true
	}
	return changed
}

func (c *Client) snapshotContacts() []backend.Contact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]backend.Contact(nil), c.contacts...)
}
