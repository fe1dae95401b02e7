package model

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/outbox"
	"github.com/matheus3301/wpp-inbox/internal/poll"
	"github.com/matheus3301/wpp-inbox/internal/service"
	"github.com/matheus3301/wpp-inbox/internal/status"
	"github.com/matheus3301/wpp-inbox/internal/tui/ui"
)

// Daemon is the part of the daemon client the TUI needs.
type Daemon interface {
	poll.Source
	Send(ctx context.Context, to, text string) (backend.SendResult, error)
	Pair(ctx context.Context) error
	SyncProgress(ctx context.Context) (service.SyncProgress, error)
}

// ViewModel owns the client-side timeline and signals UI refreshes.
type ViewModel struct {
	mu     sync.RWMutex
	report status.Report

	daemon   Daemon
	bus      *bus.Bus
	Timeline *outbox.Timeline
	sender   *outbox.Sender
	poller   *poll.Poller
	Flash    *ui.FlashModel
	logger   *zap.Logger

	refreshCh chan struct{}
	unsub     func()
}

// NewViewModel wires a timeline, an optimistic sender and a poller around d.
func NewViewModel(d Daemon, opts poll.Options, logger *zap.Logger) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := bus.New()
	tl := outbox.NewTimeline()
	vm := &ViewModel{
		daemon:    d,
		bus:       b,
		Timeline:  tl,
		sender:    outbox.NewSender(tl, d, b, logger.Named("outbox")),
		poller:    poll.New(d, tl, opts, logger),
		Flash:     ui.NewFlashModel(),
		logger:    logger,
		refreshCh: make(chan struct{}, 1),
	}
	vm.poller.OnChange(vm.signalRefresh)
	vm.poller.OnOffline(func(offline bool) {
		if offline {
			vm.Flash.Warn("daemon unreachable, retrying")
		} else {
			vm.Flash.Info("reconnected")
		}
		vm.signalRefresh()
	})
	return vm
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// Start begins polling and watches send outcomes.
func (vm *ViewModel) Start(ctx context.Context) error {
	ch, unsub := vm.bus.Subscribe(bus.NSMessage, 32)
	vm.unsub = unsub
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-ch:
				if ack, ok := evt.Payload.(outbox.Ack); ok && evt.Kind == bus.MessageSendFailed {
					vm.Flash.Warn("send failed: " + ack.Error)
				}
				vm.signalRefresh()
			}
		}
	}()
	return vm.poller.Start(ctx)
}

// Stop halts polling and waits for in-flight sends.
func (vm *ViewModel) Stop() {
	vm.poller.Stop()
	vm.sender.Wait()
	if vm.unsub != nil {
		vm.unsub()
	}
}

// Offline reports whether the last poll failed.
func (vm *ViewModel) Offline() bool {
	return vm.poller.Offline()
}

// LoadStatus fetches and caches the daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	r, err := vm.daemon.Status(ctx)
	if err != nil {
		return err
	}
	vm.SetStatus(r)
	return nil
}

// SetStatus replaces the cached status report.
func (vm *ViewModel) SetStatus(r status.Report) {
	vm.mu.Lock()
	vm.report = r
	vm.mu.Unlock()
	vm.signalRefresh()
}

// Status returns the cached status report.
func (vm *ViewModel) Status() status.Report {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.report
}

// AwaitReady polls until the session is ready, reporting each status.
func (vm *ViewModel) AwaitReady(ctx context.Context, onReport func(status.Report)) (status.Report, error) {
	return vm.poller.AwaitReady(ctx, func(r status.Report) {
		vm.SetStatus(r)
		if onReport != nil {
			onReport(r)
		}
	})
}

// Pair asks the daemon to restart pairing.
func (vm *ViewModel) Pair(ctx context.Context) error {
	return vm.daemon.Pair(ctx)
}

// SyncProgress returns the daemon's history sync progress.
func (vm *ViewModel) SyncProgress(ctx context.Context) (service.SyncProgress, error) {
	return vm.daemon.SyncProgress(ctx)
}

// Messages returns the visible timeline, oldest first.
func (vm *ViewModel) Messages() []inbox.Message {
	all := vm.Timeline.Messages()
	out := all[:0:0]
	for _, m := range all {
		if inbox.Visible(m) {
			out = append(out, m)
		}
	}
	return out
}

// Contacts returns picker candidates for query, frequent contacts first.
func (vm *ViewModel) Contacts(query string) []inbox.Contact {
	return inbox.FilterContacts(vm.Timeline.Prioritized(), query, inbox.DefaultFilterLimits)
}

// Frequent returns the frequently contacted section of the picker. It is
// empty while a query narrows the list.
func (vm *ViewModel) Frequent(query string) []inbox.Contact {
	if strings.TrimSpace(query) != "" {
		return nil
	}
	return vm.Timeline.Frequent(inbox.DefaultFrequent)
}

// Reply answers m's conversation. The message shows up immediately and is
// removed again if the daemon rejects it.
func (vm *ViewModel) Reply(ctx context.Context, m inbox.Message, body string) error {
	return vm.send(ctx, outbox.Reply, m.Key(), body)
}

// SendNew starts a conversation with contactID.
func (vm *ViewModel) SendNew(ctx context.Context, contactID, body string) error {
	return vm.send(ctx, outbox.New, contactID, body)
}

func (vm *ViewModel) send(ctx context.Context, mode outbox.Mode, to, body string) error {
	m, err := vm.sender.Send(ctx, mode, to, body)
	if err != nil {
		return err
	}
	vm.logger.Debug("optimistic insert", zap.String("id", m.ID), zap.String("to", m.To))
	vm.Flash.Set("sending to "+vm.Timeline.Resolve(m.To).Name, 3*time.Second)
	vm.signalRefresh()
	return nil
}
