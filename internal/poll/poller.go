// Package poll keeps a client-side timeline fresh by polling the daemon on
// fixed schedules.
package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/outbox"
	"github.com/matheus3301/wpp-inbox/internal/status"
)

// ErrAuthTimeout is returned by AwaitReady when the ceiling passes before
// the daemon reports ready.
var ErrAuthTimeout = errors.New("timed out waiting for the session to become ready")

// Source is what the poller reads from. The gRPC client satisfies it.
type Source interface {
	Status(ctx context.Context) (status.Report, error)
	Contacts(ctx context.Context) ([]inbox.Contact, error)
	Messages(ctx context.Context) ([]inbox.Message, error)
}

// Options sets the schedules. Zero values take the defaults.
type Options struct {
	Contacts      time.Duration
	Messages      time.Duration
	Status        time.Duration
	StatusCeiling time.Duration
	// Timeout bounds a single fetch.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Contacts <= 0 {
		o.Contacts = 10 * time.Second
	}
	if o.Messages <= 0 {
		o.Messages = 3 * time.Second
	}
	if o.Status <= 0 {
		o.Status = 2 * time.Second
	}
	if o.StatusCeiling <= 0 {
		o.StatusCeiling = 2 * time.Minute
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	return o
}

// Poller refreshes a Timeline from a Source. The first load fetches
// contacts before messages so outgoing messages are annotated with saved
// names; after that the two schedules run independently and a failed fetch
// only flips the offline indicator.
type Poller struct {
	src    Source
	tl     *outbox.Timeline
	opts   Options
	logger *zap.Logger

	cron    *cron.Cron
	offline atomic.Bool
	initial sync.WaitGroup

	mu        sync.Mutex
	stopped   bool
	onChange  func()
	onOffline func(bool)
}

// New creates a poller. Call Start to begin.
func New(src Source, tl *outbox.Timeline, opts Options, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("poll")
	return &Poller{
		src:    src,
		tl:     tl,
		opts:   opts.withDefaults(),
		logger: logger,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger{logger.Sugar()})),
		),
	}
}

// OnChange registers fn to run after every successful fetch.
func (p *Poller) OnChange(fn func()) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// OnOffline registers fn to run when the offline indicator flips.
func (p *Poller) OnOffline(fn func(bool)) {
	p.mu.Lock()
	p.onOffline = fn
	p.mu.Unlock()
}

// Offline reports whether the most recent fetch failed.
func (p *Poller) Offline() bool { return p.offline.Load() }

// Start loads contacts and then messages in the background, and only then
// starts the schedules, so no message poll can run ahead of the directory.
func (p *Poller) Start(ctx context.Context) error {
	if _, err := p.cron.AddFunc(every(p.opts.Contacts), func() { p.FetchContacts(ctx) }); err != nil {
		return fmt.Errorf("schedule contacts: %w", err)
	}
	if _, err := p.cron.AddFunc(every(p.opts.Messages), func() { p.FetchMessages(ctx) }); err != nil {
		return fmt.Errorf("schedule messages: %w", err)
	}
	p.initial.Add(1)
	go func() {
		defer p.initial.Done()
		p.FetchContacts(ctx)
		p.FetchMessages(ctx)

		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.stopped && ctx.Err() == nil {
			p.cron.Start()
		}
	}()
	return nil
}

// Stop halts the schedules and waits for running fetches.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.initial.Wait()
	<-p.cron.Stop().Done()
}

// FetchContacts replaces the timeline's directory.
func (p *Poller) FetchContacts(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()
	contacts, err := p.src.Contacts(ctx)
	if err != nil {
		p.fail("contacts", err)
		return
	}
	p.tl.ReplaceContacts(contacts)
	p.succeed()
}

// FetchMessages reconciles the fetched messages into the timeline.
func (p *Poller) FetchMessages(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()
	msgs, err := p.src.Messages(ctx)
	if err != nil {
		p.fail("messages", err)
		return
	}
	p.tl.Apply(msgs)
	p.succeed()
}

func (p *Poller) fail(what string, err error) {
	p.logger.Debug("fetch failed", zap.String("what", what), zap.Error(err))
	if !p.offline.Swap(true) {
		p.notifyOffline(true)
	}
}

func (p *Poller) succeed() {
	if p.offline.Swap(false) {
		p.notifyOffline(false)
	}
	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (p *Poller) notifyOffline(offline bool) {
	p.mu.Lock()
	fn := p.onOffline
	p.mu.Unlock()
	if fn != nil {
		fn(offline)
	}
}

// AwaitReady polls status until the daemon reports ready, the session
// reaches a terminal state, or the ceiling passes. onReport sees every
// successful poll, so callers can render QR codes as they rotate.
func (p *Poller) AwaitReady(ctx context.Context, onReport func(status.Report)) (status.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.StatusCeiling)
	defer cancel()

	ticker := time.NewTicker(p.opts.Status)
	defer ticker.Stop()

	for {
		r, err := p.src.Status(ctx)
		if err == nil {
			if onReport != nil {
				onReport(r)
			}
			switch {
			case r.Ready:
				return r, nil
			case r.State == status.AuthTimeout:
				return r, ErrAuthTimeout
			case r.State == status.Error:
				return r, fmt.Errorf("session error: %s", r.Error)
			}
		} else {
			p.logger.Debug("status poll failed", zap.Error(err))
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return status.Report{}, ErrAuthTimeout
			}
			return status.Report{}, ctx.Err()
		}
	}
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

// cronLogger routes cron's recover output into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
