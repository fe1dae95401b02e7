// Package client is the typed gRPC client for a session daemon.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/rpc"
	"github.com/matheus3301/wpp-inbox/internal/service"
	"github.com/matheus3301/wpp-inbox/internal/status"
)

// Client wraps the gRPC connection to the daemon.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

var jsonCall = grpc.CallContentSubtype(rpc.ContentSubtype)

// New dials the daemon's Unix domain socket. The connection is lazy; the
// first call reports an unreachable daemon.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn, health: healthpb.NewHealthClient(conn)}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, "/"+rpc.ServiceName+"/"+method, in, out, jsonCall)
}

// Ping checks that the daemon is serving.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("daemon not serving: %s", resp.GetStatus())
	}
	return nil
}

func (c *Client) Status(ctx context.Context) (status.Report, error) {
	var out status.Report
	err := c.invoke(ctx, "Status", &rpc.Empty{}, &out)
	return out, err
}

func (c *Client) Contacts(ctx context.Context) ([]inbox.Contact, error) {
	var out rpc.ContactsReply
	if err := c.invoke(ctx, "Contacts", &rpc.Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Contacts, nil
}

func (c *Client) Messages(ctx context.Context) ([]inbox.Message, error) {
	var out rpc.MessagesReply
	if err := c.invoke(ctx, "Messages", &rpc.Empty{}, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Send delivers text to a chat id or bare phone number.
func (c *Client) Send(ctx context.Context, to, text string) (backend.SendResult, error) {
	var out backend.SendResult
	err := c.invoke(ctx, "Send", &rpc.SendRequest{To: to, Message: text}, &out)
	return out, err
}

// Pair asks the daemon to start a fresh pairing attempt.
func (c *Client) Pair(ctx context.Context) error {
	return c.invoke(ctx, "Pair", &rpc.Empty{}, &rpc.Empty{})
}

func (c *Client) SyncProgress(ctx context.Context) (service.SyncProgress, error) {
	var out service.SyncProgress
	err := c.invoke(ctx, "SyncProgress", &rpc.Empty{}, &out)
	return out, err
}

var watchDesc = &grpc.StreamDesc{StreamName: "WatchEvents", ServerStreams: true}

// Watch streams daemon events to fn until ctx is cancelled, the stream
// ends or fn returns an error. A nil namespaces list uses the daemon's
// defaults.
func (c *Client) Watch(ctx context.Context, namespaces []string, fn func(rpc.Event) error) error {
	stream, err := c.conn.NewStream(ctx, watchDesc, "/"+rpc.ServiceName+"/WatchEvents", jsonCall)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&rpc.WatchRequest{Namespaces: namespaces}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		var evt rpc.Event
		if err := stream.RecvMsg(&evt); err != nil {
			if errors.Is(err, io.EOF) || grpcstatus.Code(err) == codes.Canceled {
				return nil
			}
			return err
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}

// IsUnavailable reports whether err means the daemon or its backend
// cannot serve the call right now.
func IsUnavailable(err error) bool {
	return grpcstatus.Code(err) == codes.Unavailable
}

// IsUnsupported reports whether the active backend lacks the called
// capability.
func IsUnsupported(err error) bool {
	return grpcstatus.Code(err) == codes.Unimplemented
}

// Message returns the human-readable part of a gRPC error.
func Message(err error) string {
	if s, ok := grpcstatus.FromError(err); ok {
		return s.Message()
	}
	return err.Error()
}
