package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/service"
	"github.com/matheus3301/wpp-inbox/internal/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "inbox.v1.Inbox"

// InboxServer is the server side of inbox.v1.Inbox.
type InboxServer interface {
	Status(context.Context, *Empty) (*status.Report, error)
	Contacts(context.Context, *Empty) (*ContactsReply, error)
	Messages(context.Context, *Empty) (*MessagesReply, error)
	Send(context.Context, *SendRequest) (*backend.SendResult, error)
	Pair(context.Context, *Empty) (*Empty, error)
	SyncProgress(context.Context, *Empty) (*service.SyncProgress, error)
	WatchEvents(*WatchRequest, EventStream) error
}

// EventStream is the server half of WatchEvents.
type EventStream interface {
	Send(*Event) error
	Context() context.Context
}

type eventStream struct {
	grpc.ServerStream
}

func (s *eventStream) Send(e *Event) error { return s.SendMsg(e) }

// RegisterInboxServer registers srv on s.
func RegisterInboxServer(s grpc.ServiceRegistrar, srv InboxServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InboxServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Status", InboxServer.Status),
		unary("Contacts", InboxServer.Contacts),
		unary("Messages", InboxServer.Messages),
		unary("Send", InboxServer.Send),
		unary("Pair", InboxServer.Pair),
		unary("SyncProgress", InboxServer.SyncProgress),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "inbox/v1/inbox",
}

func unary[Req, Resp any](method string, call func(InboxServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(InboxServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(InboxServer), ctx, req.(*Req))
			})
		},
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(InboxServer).WatchEvents(in, &eventStream{stream})
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}
