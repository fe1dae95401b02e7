package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/config"
	"github.com/matheus3301/wpp-inbox/internal/session"
	"github.com/matheus3301/wpp-inbox/internal/status"
	"github.com/matheus3301/wpp-inbox/internal/store"
	"github.com/matheus3301/wpp-inbox/internal/tui/client"
)

func TestChooseBackend(t *testing.T) {
	creds := config.CloudConfig{PhoneNumberID: "109876543210987", AccessToken: "EAAG"}
	tests := []struct {
		name      string
		mode      string
		cloud     config.CloudConfig
		hasDevice bool
		want      string
		wantErr   bool
	}{
		{"explicit cloud", config.BackendCloud, config.CloudConfig{}, true, backend.Cloud, false},
		{"explicit automation", config.BackendAutomation, creds, false, backend.Automation, false},
		{"explicit fixture", config.BackendFixture, creds, true, backend.Fixture, false},
		{"auto prefers cloud", config.BackendAuto, creds, true, backend.Cloud, false},
		{"auto device", config.BackendAuto, config.CloudConfig{}, true, backend.Automation, false},
		{"auto demo creds", config.BackendAuto, config.CloudConfig{PhoneNumberID: "demo_phone_number_id", AccessToken: "demo_access_token"}, false, backend.Fixture, false},
		{"empty mode is auto", "", config.CloudConfig{}, false, backend.Fixture, false},
		{"unknown", "carrier-pigeon", config.CloudConfig{}, false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Backend = tt.mode
			cfg.Cloud = tt.cloud
			got, err := chooseBackend(cfg, tt.hasDevice)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("chooseBackend() = %q, want %q", got, tt.want)
			}
		})
	}
}

// startDaemon runs the full fx graph against a temporary home.
func startDaemon(t *testing.T, mode string) *client.Client {
	t.Helper()
	// Use /tmp for short socket paths (macOS 104-char limit).
	home, err := os.MkdirTemp("/tmp", "inbox-d-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(home) })
	t.Setenv(session.HomeEnv, home)

	cfg := config.Default()
	cfg.Backend = mode
	cfg.HTTP.Addr = "127.0.0.1:0"

	app := fx.New(
		Module(Params{SessionName: "test", Config: cfg, Logger: zap.NewNop()}),
		fx.NopLogger,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("app.Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			t.Errorf("app.Stop() error = %v", err)
		}
		if _, err := os.Stat(session.SocketPath("test")); !os.IsNotExist(err) {
			t.Errorf("socket left behind: %v", err)
		}
	})

	cli, err := client.New(session.SocketPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

func waitState(t *testing.T, cli *client.Client, want status.State) status.Report {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		r, err := cli.Status(ctx)
		cancel()
		if err == nil && r.State == want {
			return r
		}
		select {
		case <-deadline:
			t.Fatalf("state never reached %s (last %+v, err %v)", want, r, err)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestDaemonFixtureLifecycle(t *testing.T) {
	cli := startDaemon(t, config.BackendFixture)

	r := waitState(t, cli, status.Ready)
	if r.Backend != backend.Fixture || !r.Authenticated {
		t.Errorf("report = %+v", r)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deadline := time.After(2 * time.Second)
	for {
		msgs, err := cli.Messages(ctx)
		if err == nil && len(msgs) == 8 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("messages = %d, err = %v", len(msgs), err)
		case <-time.After(20 * time.Millisecond):
		}
	}

	contacts, err := cli.Contacts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 5 {
		t.Errorf("contacts = %d, want 5", len(contacts))
	}

	if _, err := os.Stat(session.AppDBPath("test")); err != nil {
		t.Errorf("app db not created: %v", err)
	}
}

// A backend that cannot start leaves the daemon up, reporting why.
func TestDaemonBackendStartFailure(t *testing.T) {
	cli := startDaemon(t, config.BackendCloud)

	r := waitState(t, cli, status.Error)
	if !strings.Contains(r.Error, "not configured") {
		t.Errorf("error = %q, want credentials hint", r.Error)
	}
}

func TestReportPendingOutbox(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "inbox.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	if err := db.QueueOutbox("c1", "919876543210@c.us", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := db.QueueOutbox("c2", "919876543211@c.us", "hi"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxSent("c2", "wamid.1"); err != nil {
		t.Fatal(err)
	}

	reportPendingOutbox(db, zap.NewNop())

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
	recent, err := db.RecentOutbox(10)
	if err != nil {
		t.Fatal(err)
	}
	byID := map[string]store.OutboxEntry{}
	for _, e := range recent {
		byID[e.ClientMsgID] = e
	}
	if byID["c1"].Status != store.SendFailed || byID["c1"].ErrorMessage == "" {
		t.Errorf("c1 = %+v", byID["c1"])
	}
	if byID["c2"].Status != store.SendSent {
		t.Errorf("c2 = %+v", byID["c2"])
	}
}
