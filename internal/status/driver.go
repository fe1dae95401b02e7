package status

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/bus"
)

// Reach walks the machine to target along the shortest chain of valid
// transitions, never passing through Error. Each step is announced like a
// single Transition.
func (m *Machine) Reach(target State) error {
	for _, s := range route(m.Current(), target) {
		if err := m.Transition(s); err != nil {
			return err
		}
	}
	return nil
}

// route returns the states to visit after from to arrive at to, or nil
// when to is unreachable or already current.
func route(from, to State) []State {
	if from == to {
		return nil
	}
	prev := map[State]State{from: from}
	queue := []State{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range validTransitions[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			if next == Error && to != Error {
				continue
			}
			prev[next] = cur
			if next == to {
				var path []State
				for s := to; s != from; s = prev[s] {
					path = append(path, s)
				}
				slices.Reverse(path)
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// Driver derives the machine's state from backend.* events so every
// backend goes through the same lifecycle.
type Driver struct {
	machine *Machine
	bus     *bus.Bus
	logger  *zap.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDriver creates a driver for m fed from b.
func NewDriver(m *Machine, b *bus.Bus, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{machine: m, bus: b, logger: logger}
}

// Start subscribes to backend events. It returns after the subscription is
// in place so no event published afterwards is missed.
func (d *Driver) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	ch, unsub := d.bus.Subscribe(bus.NSBackend, 64)
	go func() {
		defer close(d.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				d.Apply(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the subscription.
func (d *Driver) Stop() {
	if d.cancel != nil {
		d.cancel()
		<-d.done
	}
}

// Apply updates the machine for one backend event. Unrelated kinds are
// ignored.
func (d *Driver) Apply(evt bus.Event) {
	m := d.machine
	var err error
	switch evt.Kind {
	case bus.BackendQR:
		code, _ := evt.Payload.(string)
		err = m.Reach(AuthRequired)
		m.SetQR(code)
	case bus.BackendReady:
		info, _ := evt.Payload.(map[string]any)
		err = m.Reach(Ready)
		m.SetAuthenticated(true)
		m.SetClientInfo(info)
	case bus.BackendDisconnected:
		if m.Current() == Ready || m.Current() == Connecting {
			err = m.Transition(Reconnecting)
		}
	case bus.BackendLoggedOut:
		err = m.Reach(AuthRequired)
	case bus.BackendAuthTimeout:
		err = m.Reach(AuthTimeout)
		m.SetQR("")
	default:
		return
	}
	if err != nil {
		d.logger.Warn("ignoring backend event", zap.String("kind", evt.Kind), zap.Error(err))
	}
}
