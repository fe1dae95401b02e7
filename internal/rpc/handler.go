package rpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/service"
	"github.com/matheus3301/wpp-inbox/internal/status"
)

// DefaultNamespaces are streamed when a watcher names none.
var DefaultNamespaces = []string{bus.NSMessage, bus.NSContacts, bus.NSSession}

// Handler implements InboxServer over the inbox service.
type Handler struct {
	sessionName string
	svc         *service.Inbox
	bus         *bus.Bus
	logger      *zap.Logger
}

// NewHandler creates the gRPC handler for a session.
func NewHandler(sessionName string, svc *service.Inbox, b *bus.Bus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessionName: sessionName,
		svc:         svc,
		bus:         b,
		logger:      logger.Named("rpc"),
	}
}

func (h *Handler) Status(_ context.Context, _ *Empty) (*status.Report, error) {
	r := h.svc.Status()
	return &r, nil
}

func (h *Handler) Contacts(ctx context.Context, _ *Empty) (*ContactsReply, error) {
	contacts, err := h.svc.Contacts(ctx)
	if err != nil {
		return nil, toStatus("contacts", err)
	}
	return &ContactsReply{Contacts: contacts}, nil
}

func (h *Handler) Messages(ctx context.Context, _ *Empty) (*MessagesReply, error) {
	msgs, err := h.svc.Messages(ctx)
	if err != nil {
		return nil, toStatus("messages", err)
	}
	return &MessagesReply{Messages: msgs}, nil
}

func (h *Handler) Send(ctx context.Context, req *SendRequest) (*backend.SendResult, error) {
	res, err := h.svc.Send(ctx, req.To, req.Message)
	if err != nil {
		return nil, toStatus("send", err)
	}
	return &res, nil
}

func (h *Handler) Pair(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := h.svc.Pair(ctx); err != nil {
		return nil, toStatus("pair", err)
	}
	return &Empty{}, nil
}

func (h *Handler) SyncProgress(_ context.Context, _ *Empty) (*service.SyncProgress, error) {
	p, err := h.svc.SyncProgress()
	if err != nil {
		return nil, toStatus("sync progress", err)
	}
	return &p, nil
}

// WatchEvents streams bus events until the client goes away. Events that
// arrive while the subscriber buffer is full are dropped by the bus.
func (h *Handler) WatchEvents(req *WatchRequest, stream EventStream) error {
	namespaces := req.Namespaces
	if len(namespaces) == 0 {
		namespaces = DefaultNamespaces
	}

	merged := make(chan bus.Event, 256)
	ctx := stream.Context()
	for _, ns := range namespaces {
		ch, unsub := h.bus.Subscribe(ns, 256)
		defer unsub()
		go func() {
			for {
				select {
				case evt := <-ch:
					select {
					case merged <- evt:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for {
		select {
		case evt := <-merged:
			out, err := h.envelope(evt)
			if err != nil {
				h.logger.Warn("skipping unencodable event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.Send(out); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (h *Handler) envelope(evt bus.Event) (*Event, error) {
	out := &Event{
		ID:        uuid.New().String(),
		Session:   h.sessionName,
		Kind:      evt.Kind,
		Timestamp: evt.Timestamp,
	}
	if evt.Payload != nil {
		data, err := json.Marshal(evt.Payload)
		if err != nil {
			return nil, err
		}
		out.Payload = data
	}
	return out, nil
}

func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return grpcstatus.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.Is(err, backend.ErrNotReady):
		return grpcstatus.Errorf(codes.Unavailable, "%s: %v", op, err)
	case errors.Is(err, backend.ErrUnsupported):
		return grpcstatus.Errorf(codes.Unimplemented, "%s: %v", op, err)
	case errors.Is(err, context.Canceled):
		return grpcstatus.Errorf(codes.Canceled, "%s: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Errorf(codes.DeadlineExceeded, "%s: %v", op, err)
	default:
		return grpcstatus.Errorf(codes.Internal, "%s: %v", op, err)
	}
}
