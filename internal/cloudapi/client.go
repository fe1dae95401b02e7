// Package cloudapi is the backend for the official WhatsApp Cloud API.
// Outbound calls go to the Graph API; inbound messages arrive on the
// daemon's webhook and are handed to HandleWebhook.
package cloudapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/bus"
)

// ErrNotConfigured is returned by Start when credentials are missing or
// still set to the demo placeholders.
var ErrNotConfigured = errors.New("cloud api credentials not configured")

const (
	demoPhoneNumberID = "demo_phone_number_id"
	demoAccessToken   = "demo_access_token"
)

// Config holds Cloud API credentials and endpoints.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	APIVersion    string
	VerifyToken   string
	AppSecret     string
	BaseURL       string
	RatePerSecond float64
}

// IsConfigured reports whether cfg holds real credentials. Real phone
// number ids are longer than ten characters.
func (c Config) IsConfigured() bool {
	return c.PhoneNumberID != "" &&
		c.AccessToken != "" &&
		c.PhoneNumberID != demoPhoneNumberID &&
		c.AccessToken != demoAccessToken &&
		len(c.PhoneNumberID) > 10
}

// MaskedPhoneNumberID shows only the last four characters.
func (c Config) MaskedPhoneNumberID() string {
	if c.PhoneNumberID == "" {
		return ""
	}
	if len(c.PhoneNumberID) <= 4 {
		return "***" + c.PhoneNumberID
	}
	return "***" + c.PhoneNumberID[len(c.PhoneNumberID)-4:]
}

// APIError is a non-2xx Graph API response.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cloud api: http %d", e.Status)
	}
	return fmt.Sprintf("cloud api: http %d: %s (code %d)", e.Status, e.Message, e.Code)
}

// Client implements backend.Backend over the Graph API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	bus     *bus.Bus
	logger  *zap.Logger

	mu       sync.Mutex
	ready    bool
	contacts []backend.Contact
	seen     map[string]int
}

// New creates a Cloud API client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client, b *bus.Bus, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v18.0"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com"
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		bus:     b,
		logger:  logger.Named("cloudapi"),
		seen:    make(map[string]int),
	}
}

func (c *Client) Name() string { return backend.Cloud }

// Start checks the credentials against the business profile endpoint and
// reports readiness. A failed profile lookup is logged, not fatal.
func (c *Client) Start(ctx context.Context) error {
	if !c.cfg.IsConfigured() {
		return ErrNotConfigured
	}

	info := map[string]any{
		"configured":    true,
		"phoneNumberId": c.cfg.MaskedPhoneNumberID(),
		"apiVersion":    c.cfg.APIVersion,
	}
	profile, err := c.BusinessProfile(ctx)
	if err != nil {
		c.logger.Warn("business profile lookup failed", zap.Error(err))
	} else {
		for _, k := range []string{"display_phone_number", "verified_name", "quality_rating"} {
			if v, ok := profile[k]; ok {
				info[k] = v
			}
		}
	}

	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()

	c.logger.Info("cloud api ready", zap.String("phone_number_id", c.cfg.MaskedPhoneNumberID()))
	c.bus.Emit(bus.BackendReady, info)
	return nil
}

func (c *Client) Stop() {
	c.mu.Lock()
	c.ready = false
	c.mu.Unlock()
}

// Contacts returns everyone seen on the webhook so far, in first-seen
// order. The Cloud API has no directory endpoint.
func (c *Client) Contacts(ctx context.Context) ([]backend.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return nil, backend.ErrNotReady
	}
	return append([]backend.Contact(nil), c.contacts...), nil
}

type sendRequest struct {
	MessagingProduct string    `json:"messaging_product"`
	RecipientType    string    `json:"recipient_type,omitempty"`
	To               string    `json:"to,omitempty"`
	Type             string    `json:"type,omitempty"`
	Text             *textBody `json:"text,omitempty"`
	Status           string    `json:"status,omitempty"`
	MessageID        string    `json:"message_id,omitempty"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Success bool `json:"success"`
}

// Send posts a text message. Calls are paced by the configured rate.
func (c *Client) Send(ctx context.Context, to, text string) (backend.SendResult, error) {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()
	if !ready {
		return backend.SendResult{}, backend.ErrNotReady
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return backend.SendResult{}, fmt.Errorf("rate limit: %w", err)
	}

	var resp sendResponse
	err := c.do(ctx, http.MethodPost, "/"+c.cfg.PhoneNumberID+"/messages", sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               backend.Number(to),
		Type:             "text",
		Text:             &textBody{Body: text},
	}, &resp)
	if err != nil {
		return backend.SendResult{}, fmt.Errorf("send message: %w", err)
	}
	if len(resp.Messages) == 0 {
		return backend.SendResult{}, errors.New("send message: empty response")
	}

	now := time.Now()
	return backend.SendResult{
		ID:        resp.Messages[0].ID,
		Timestamp: float64(now.UnixMilli()) / 1000,
		Ack:       1,
	}, nil
}

// MarkRead marks an inbound message as read.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	var resp sendResponse
	if err := c.do(ctx, http.MethodPost, "/"+c.cfg.PhoneNumberID+"/messages", sendRequest{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	}, &resp); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// BusinessProfile returns the phone number object for the configured id.
func (c *Client) BusinessProfile(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/"+c.cfg.PhoneNumberID, nil, &out); err != nil {
		return nil, fmt.Errorf("business profile: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + c.cfg.APIVersion + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err == nil && env.Error != nil {
		env.Error.Status = resp.StatusCode
		return env.Error
	}
	return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}
