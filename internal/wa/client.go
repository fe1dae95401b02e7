// Package wa is the linked-device backend: it drives a whatsmeow client and
// reports pairing, connection and message events on the bus.
package wa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"google.golang.org/protobuf/proto"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/bus"

	_ "github.com/mattn/go-sqlite3"
)

// ErrAlreadyPaired is returned by Pair when the device holds credentials.
var ErrAlreadyPaired = errors.New("wa: device already paired")

// Options configures the client.
type Options struct {
	DeviceDBPath string
	// AuthTimeout is the ceiling for one pairing attempt. Defaults to 2m.
	AuthTimeout time.Duration
	// ProfilePictures is how many contacts get a profile picture lookup per
	// refresh. Zero disables lookups.
	ProfilePictures int
}

// Client implements backend.Backend and backend.Pairer on top of whatsmeow.
type Client struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	bus       *bus.Bus
	logger    *zap.Logger
	opts      Options

	contacts singleflight.Group

	mu         sync.Mutex
	pairCancel context.CancelFunc
}

// New opens the device store and prepares a client. It does not connect.
func New(ctx context.Context, opts Options, b *bus.Bus, logger *zap.Logger) (*Client, error) {
	wastore.SetOSInfo("WPP-Inbox", [3]uint32{0, 1, 0})
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = 2 * time.Minute
	}

	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", opts.DeviceDBPath),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device store: %w", err)
	}

	c := &Client{
		client:    whatsmeow.NewClient(deviceStore, nil),
		container: container,
		bus:       b,
		logger:    logger.Named("wa"),
		opts:      opts,
	}
	c.client.AddEventHandler(NewEventHandler(b, c, c.logger).Handle)
	return c, nil
}

// HasDevice reports whether the device store at path holds credentials
// from an earlier pairing.
func HasDevice(ctx context.Context, path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", path), nil)
	if err != nil {
		return false
	}
	defer func() { _ = container.Close() }()
	devices, err := container.GetAllDevices(ctx)
	return err == nil && len(devices) > 0
}

func (c *Client) Name() string { return backend.Automation }

// IsLoggedIn returns whether the device has valid credentials.
func (c *Client) IsLoggedIn() bool {
	return c.client.Store.ID != nil
}

// Start connects with stored credentials, or begins pairing when there
// are none.
func (c *Client) Start(ctx context.Context) error {
	if !c.IsLoggedIn() {
		return c.Pair(ctx)
	}
	c.logger.Info("connecting to WhatsApp")
	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Pair starts a QR pairing attempt bounded by the configured auth timeout.
// Codes are published as backend.qr; expiry as backend.auth_timeout.
func (c *Client) Pair(ctx context.Context) error {
	if c.IsLoggedIn() {
		return ErrAlreadyPaired
	}

	c.mu.Lock()
	if c.pairCancel != nil {
		c.pairCancel()
	}
	pairCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.AuthTimeout)
	c.pairCancel = cancel
	c.mu.Unlock()

	// A previous attempt may have left a half-open socket.
	c.client.Disconnect()

	qrChan, err := c.client.GetQRChannel(pairCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("get QR channel: %w", err)
	}
	// Connect must be called after GetQRChannel.
	if err := c.client.Connect(); err != nil {
		cancel()
		return fmt.Errorf("connect: %w", err)
	}

	go c.watchPairing(pairCtx, cancel, qrChan)
	return nil
}

func (c *Client) watchPairing(ctx context.Context, cancel context.CancelFunc, qrChan <-chan whatsmeow.QRChannelItem) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				c.logger.Warn("pairing timed out", zap.Duration("after", c.opts.AuthTimeout))
				c.client.Disconnect()
				c.bus.Emit(bus.BackendAuthTimeout, nil)
			}
			return
		case item, ok := <-qrChan:
			if !ok {
				return
			}
			switch item.Event {
			case whatsmeow.QRChannelEventCode:
				c.bus.Emit(bus.BackendQR, item.Code)
			case "success":
				c.logger.Info("pairing succeeded")
				return
			case "timeout":
				c.logger.Warn("pairing codes expired")
				c.client.Disconnect()
				c.bus.Emit(bus.BackendAuthTimeout, nil)
				return
			case whatsmeow.QRChannelEventError:
				c.logger.Error("pairing failed", zap.Error(item.Error))
				c.client.Disconnect()
				c.bus.Emit(bus.BackendAuthTimeout, nil)
				return
			default:
				c.logger.Warn("pairing ended", zap.String("event", item.Event))
				return
			}
		}
	}
}

// Stop disconnects and closes the device store.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.pairCancel != nil {
		c.pairCancel()
		c.pairCancel = nil
	}
	c.mu.Unlock()

	c.logger.Info("disconnecting from WhatsApp")
	c.client.Disconnect()
	if err := c.container.Close(); err != nil {
		c.logger.Warn("close device store", zap.Error(err))
	}
}

// Send sends a text message. to may be a chat id, a JID or a phone number.
func (c *Client) Send(ctx context.Context, to, text string) (backend.SendResult, error) {
	if !c.client.IsLoggedIn() {
		return backend.SendResult{}, backend.ErrNotReady
	}
	jid, err := ParseChatID(to)
	if err != nil {
		return backend.SendResult{}, fmt.Errorf("parse recipient: %w", err)
	}
	resp, err := c.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return backend.SendResult{}, fmt.Errorf("send message: %w", err)
	}
	return backend.SendResult{
		ID:        resp.ID,
		Timestamp: float64(resp.Timestamp.UnixMilli()) / 1000,
		Ack:       1,
	}, nil
}

// Contacts returns the address book of the device store. Concurrent calls
// share one lookup.
func (c *Client) Contacts(ctx context.Context) ([]backend.Contact, error) {
	if !c.IsLoggedIn() {
		return nil, backend.ErrNotReady
	}
	v, err, _ := c.contacts.Do("contacts", func() (any, error) {
		return c.fetchContacts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]backend.Contact)), nil
}

func (c *Client) fetchContacts(ctx context.Context) ([]backend.Contact, error) {
	all, err := c.client.Store.Contacts.GetAllContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("get contacts: %w", err)
	}

	contacts := make([]backend.Contact, 0, len(all))
	seen := make(map[string]bool, len(all))
	for jid, info := range all {
		jid = c.ResolveLID(ctx, jid.ToNonAD())
		if jid.Server != types.DefaultUserServer {
			continue
		}
		id := ChatID(jid)
		if seen[id] {
			continue
		}
		seen[id] = true
		contacts = append(contacts, backend.Contact{
			ID:       id,
			Name:     info.FullName,
			PushName: info.PushName,
			Number:   jid.User,
		})
	}
	// Map order is random; keep refreshes stable.
	slices.SortFunc(contacts, func(a, b backend.Contact) int {
		return strings.Compare(a.ID, b.ID)
	})

	c.attachProfilePictures(ctx, contacts)
	for i := range contacts {
		contacts[i] = backend.FormatContact(contacts[i])
	}
	return contacts, nil
}

// attachProfilePictures looks up preview pictures for the first
// ProfilePictures named contacts. Failures leave the field empty.
func (c *Client) attachProfilePictures(ctx context.Context, contacts []backend.Contact) {
	budget := c.opts.ProfilePictures
	if budget <= 0 {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range contacts {
		if budget == 0 {
			break
		}
		if contacts[i].Name == "" && contacts[i].PushName == "" {
			continue
		}
		budget--
		g.Go(func() error {
			jid := types.NewJID(contacts[i].Number, types.DefaultUserServer)
			info, err := c.client.GetProfilePictureInfo(gctx, jid, &whatsmeow.GetProfilePictureParams{Preview: true})
			if err != nil || info == nil {
				return nil
			}
			contacts[i].ProfilePicURL = info.URL
			return nil
		})
	}
	_ = g.Wait()
}

// Self returns the paired account JID, or the empty JID.
func (c *Client) Self() types.JID {
	if c.client.Store.ID == nil {
		return types.EmptyJID
	}
	return c.client.Store.ID.ToNonAD()
}

// PhoneNumber returns the paired account number, or empty string.
func (c *Client) PhoneNumber() string {
	return c.Self().User
}

func (c *Client) PushName() string { return c.client.Store.PushName }

func (c *Client) Platform() string { return c.client.Store.Platform }

// ResolveLID resolves a LID JID to its phone number JID using the device store mapping.
// Returns the original JID if it's not a LID or if resolution fails.
func (c *Client) ResolveLID(ctx context.Context, jid types.JID) types.JID {
	if jid.Server != types.HiddenUserServer && jid.Server != types.HostedLIDServer {
		return jid
	}
	if c == nil || c.client == nil || c.client.Store == nil || c.client.Store.LIDs == nil {
		return jid
	}
	pn, err := c.client.Store.LIDs.GetPNForLID(ctx, jid)
	if err != nil || pn.IsEmpty() {
		return jid
	}
	return pn
}
