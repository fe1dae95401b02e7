package status

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/bus"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		from, to State
		want     []State
	}{
		{Booting, Ready, []State{Connecting, Ready}},
		{AuthTimeout, Ready, []State{AuthRequired, Connecting, Ready}},
		{Booting, AuthTimeout, []State{AuthRequired, AuthTimeout}},
		{Reconnecting, Ready, []State{Ready}},
		{Ready, Ready, nil},
		{Ready, Booting, nil},
	}
	for _, tt := range tests {
		got := route(tt.from, tt.to)
		if len(got) != len(tt.want) {
			t.Errorf("route(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("route(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
				break
			}
		}
	}
}

func TestDriverPairingFlow(t *testing.T) {
	m := NewMachine(nil)
	d := NewDriver(m, bus.New(), zap.NewNop())

	d.Apply(bus.Event{Kind: bus.BackendQR, Payload: "2@abc"})
	if m.Current() != AuthRequired {
		t.Fatalf("state = %s, want AUTH_REQUIRED", m.Current())
	}
	r := m.Report("automation")
	if r.QR == nil || r.RawQR != "2@abc" || r.Authenticated {
		t.Errorf("report after qr = %+v", r)
	}

	d.Apply(bus.Event{Kind: bus.BackendReady, Payload: map[string]any{"pushname": "Utsav"}})
	r = m.Report("automation")
	if !r.Ready || !r.Authenticated || r.QR != nil || r.ClientInfo["pushname"] != "Utsav" {
		t.Errorf("report after ready = %+v", r)
	}
}

func TestDriverAuthTimeoutIsTerminalUntilRetry(t *testing.T) {
	m := NewMachine(nil)
	d := NewDriver(m, nil, nil)

	d.Apply(bus.Event{Kind: bus.BackendQR, Payload: "code"})
	d.Apply(bus.Event{Kind: bus.BackendAuthTimeout})
	if m.Current() != AuthTimeout {
		t.Fatalf("state = %s, want AUTH_TIMEOUT", m.Current())
	}
	r := m.Report("automation")
	if r.QR != nil || r.Error == "" {
		t.Errorf("report after timeout = %+v", r)
	}

	d.Apply(bus.Event{Kind: bus.BackendQR, Payload: "code2"})
	if m.Current() != AuthRequired {
		t.Errorf("state after new code = %s, want AUTH_REQUIRED", m.Current())
	}
}

func TestDriverDisconnectAndLogout(t *testing.T) {
	m := NewMachine(nil)
	d := NewDriver(m, nil, nil)

	d.Apply(bus.Event{Kind: bus.BackendReady})
	d.Apply(bus.Event{Kind: bus.BackendDisconnected})
	if m.Current() != Reconnecting {
		t.Fatalf("state = %s, want RECONNECTING", m.Current())
	}
	d.Apply(bus.Event{Kind: bus.BackendReady})
	if m.Current() != Ready {
		t.Fatalf("state = %s, want READY", m.Current())
	}
	d.Apply(bus.Event{Kind: bus.BackendLoggedOut})
	if m.Current() != AuthRequired {
		t.Errorf("state = %s, want AUTH_REQUIRED", m.Current())
	}
	if m.Report("automation").Authenticated {
		t.Error("logout should clear authenticated")
	}
}

func TestDriverSubscribes(t *testing.T) {
	b := bus.New()
	m := NewMachine(b)
	d := NewDriver(m, b, zap.NewNop())
	d.Start(t.Context())
	defer d.Stop()

	ch, unsub := b.Subscribe(bus.SessionStatusChanged, 10)
	defer unsub()

	b.Emit(bus.BackendReady, nil)

	var last StatusChange
	timeout := time.After(time.Second)
	for last.To != Ready {
		select {
		case evt := <-ch:
			last = evt.Payload.(StatusChange)
		case <-timeout:
			t.Fatal("timeout waiting for READY")
		}
	}
}
