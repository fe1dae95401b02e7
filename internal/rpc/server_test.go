package rpc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/fixture"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/rpc"
	"github.com/matheus3301/wpp-inbox/internal/service"
	"github.com/matheus3301/wpp-inbox/internal/status"
	"github.com/matheus3301/wpp-inbox/internal/store"
	intsync "github.com/matheus3301/wpp-inbox/internal/sync"
	"github.com/matheus3301/wpp-inbox/internal/tui/client"
)

type env struct {
	cli     *client.Client
	fix     *fixture.Backend
	db      *store.DB
	machine *status.Machine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	// Use a short path to stay under the Unix socket length limit.
	tmpDir, err := os.MkdirTemp("/tmp", "inbox-rpc-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	db, err := store.Open(filepath.Join(tmpDir, "inbox.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	b := bus.New()
	m := status.NewMachine(b)
	engine := intsync.NewEngine(db, b, logger, 0)
	driver := status.NewDriver(m, b, logger)
	engine.Start(context.Background())
	driver.Start(context.Background())
	t.Cleanup(func() {
		driver.Stop()
		engine.Stop()
	})

	fix := fixture.New(b, logger, fixture.Options{SendDelay: time.Millisecond})
	svc := service.New(fix, db, engine, m, b, logger, service.Options{})

	srv, err := rpc.NewServer(filepath.Join(tmpDir, "d.sock"), rpc.NewHandler("test", svc, b, logger), logger)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	})

	cli, err := client.New(srv.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cli.Close() })

	return &env{cli: cli, fix: fix, db: db, machine: m}
}

func (e *env) start(t *testing.T) {
	t.Helper()
	if err := e.fix.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(2 * time.Second)
	for {
		n, _ := e.db.MessageCount()
		c, _ := e.db.ContactCount()
		if e.machine.Current() == status.Ready && n == 8 && c == 5 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("fixture did not become ready")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestPingAndStatusBeforeStart(t *testing.T) {
	e := newEnv(t)
	if err := e.cli.Ping(ctx(t)); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	r, err := e.cli.Status(ctx(t))
	if err != nil {
		t.Fatal(err)
	}
	if r.Ready || r.State != status.Booting || r.Backend != "fixture" {
		t.Errorf("report = %+v", r)
	}
}

func TestSendNotReadyIsUnavailable(t *testing.T) {
	e := newEnv(t)
	_, err := e.cli.Send(ctx(t), "919876543210@c.us", "hi")
	if !client.IsUnavailable(err) {
		t.Errorf("err = %v, want Unavailable", err)
	}
}

func TestQueriesAfterReady(t *testing.T) {
	e := newEnv(t)
	e.start(t)

	r, err := e.cli.Status(ctx(t))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Ready || r.ClientInfo["wid"] != fixture.SelfID {
		t.Errorf("report = %+v", r)
	}

	msgs, err := e.cli.Messages(ctx(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 8 {
		t.Errorf("got %d messages, want 8", len(msgs))
	}

	contacts, err := e.cli.Contacts(ctx(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 5 {
		t.Fatalf("got %d contacts, want 5", len(contacts))
	}

	p, err := e.cli.SyncProgress(ctx(t))
	if err != nil {
		t.Fatal(err)
	}
	if p.IsLoading || p.ContactsLoaded != 5 {
		t.Errorf("progress = %+v", p)
	}

	if err := e.cli.Pair(ctx(t)); err == nil {
		t.Error("Pair() on fixture should fail")
	}
}

func TestSendAndWatch(t *testing.T) {
	e := newEnv(t)
	e.start(t)

	watchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan rpc.Event, 16)
	done := make(chan error, 1)
	go func() {
		done <- e.cli.Watch(watchCtx, []string{bus.NSMessage}, func(evt rpc.Event) error {
			events <- evt
			return nil
		})
	}()

	// The subscription is registered once the stream reaches the server.
	time.Sleep(100 * time.Millisecond)

	res, err := e.cli.Send(ctx(t), "919876543210", "on my way")
	if err != nil {
		t.Fatal(err)
	}
	if res.ID == "" || res.Ack != 1 {
		t.Errorf("result = %+v", res)
	}

	var gotUpsert, gotAck bool
	timeout := time.After(2 * time.Second)
	for !gotUpsert || !gotAck {
		select {
		case evt := <-events:
			if evt.Session != "test" || evt.ID == "" {
				t.Errorf("envelope = %+v", evt)
			}
			switch evt.Kind {
			case bus.MessageUpserted:
				var m inbox.Message
				if err := evt.Decode(&m); err != nil {
					t.Fatal(err)
				}
				if m.ID == res.ID {
					gotUpsert = true
					if !m.FromMe || m.To != "919876543210@c.us" {
						t.Errorf("upserted = %+v", m)
					}
				}
			case bus.MessageSendAck:
				gotAck = true
			}
		case <-timeout:
			t.Fatalf("upsert=%v ack=%v", gotUpsert, gotAck)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestValidationIsInvalidArgument(t *testing.T) {
	e := newEnv(t)
	e.start(t)
	_, err := e.cli.Send(ctx(t), "", "x")
	if err == nil || client.IsUnavailable(err) {
		t.Errorf("err = %v, want InvalidArgument", err)
	}
}
