package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/wpp-inbox/internal/bus"
)

// State represents the backend connection state as seen by the daemon.
type State string

const (
	Booting      State = "BOOTING"
	AuthRequired State = "AUTH_REQUIRED"
	AuthTimeout  State = "AUTH_TIMEOUT"
	Connecting   State = "CONNECTING"
	Ready        State = "READY"
	Reconnecting State = "RECONNECTING"
	Error        State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:      {AuthRequired, Connecting, Error},
	AuthRequired: {Connecting, AuthTimeout, Error},
	AuthTimeout:  {AuthRequired, Error},
	Connecting:   {Ready, AuthRequired, Reconnecting, Error},
	Ready:        {Reconnecting, AuthRequired, Error},
	Reconnecting: {Connecting, Ready, AuthRequired, Error},
	Error:        {Booting},
}

// Machine tracks and enforces backend state transitions and holds what the
// status endpoint reports alongside the state: the pending pairing code,
// whether a device is paired, and the backend's client info.
type Machine struct {
	mu            sync.RWMutex
	current       State
	bus           *bus.Bus
	qr            string
	authenticated bool
	clientInfo    map[string]any
	lastErr       string
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
// Moving to the current state is a no-op.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	if m.current == to {
		m.mu.Unlock()
		return nil
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	from := m.current
	m.current = to
	switch to {
	case Ready, Connecting:
		m.qr = ""
	case AuthRequired:
		m.authenticated = false
		m.clientInfo = nil
	}
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Emit(bus.SessionStatusChanged, StatusChange{From: from, To: to})
	}
	return nil
}

// SetQR stores the latest pairing code.
func (m *Machine) SetQR(code string) {
	m.mu.Lock()
	m.qr = code
	m.mu.Unlock()
}

// SetAuthenticated records whether the backend holds valid credentials.
func (m *Machine) SetAuthenticated(v bool) {
	m.mu.Lock()
	m.authenticated = v
	m.mu.Unlock()
}

// SetClientInfo stores backend-specific details reported once ready.
func (m *Machine) SetClientInfo(info map[string]any) {
	m.mu.Lock()
	m.clientInfo = info
	m.mu.Unlock()
}

// Fail records err and moves to Error.
func (m *Machine) Fail(err error) error {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
	return m.Transition(Error)
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State `json:"from"`
	To   State `json:"to"`
}
