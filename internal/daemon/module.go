package daemon

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/api"
	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/config"
	"github.com/matheus3301/wpp-inbox/internal/inbox"
	"github.com/matheus3301/wpp-inbox/internal/lock"
	"github.com/matheus3301/wpp-inbox/internal/logging"
	"github.com/matheus3301/wpp-inbox/internal/rpc"
	"github.com/matheus3301/wpp-inbox/internal/service"
	"github.com/matheus3301/wpp-inbox/internal/session"
	"github.com/matheus3301/wpp-inbox/internal/status"
	"github.com/matheus3301/wpp-inbox/internal/store"
	intsync "github.com/matheus3301/wpp-inbox/internal/sync"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string         // optional override for testing; empty = use default
	Config      *config.Config // optional; nil = load from disk and environment
	Logger      *zap.Logger    // optional; nil = session log file + stderr
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideDriver,
			provideLock,
			provideStore,
			provideBackend,
			provideSyncEngine,
			provideService,
			provideHTTPServer,
			provideRPCServer,
			provideScheduler,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	return session.LoadConfig()
}

func provideLogger(p Params) (*zap.Logger, error) {
	if p.Logger != nil {
		return p.Logger, nil
	}
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideDriver(m *status.Machine, b *bus.Bus, logger *zap.Logger) *status.Driver {
	return status.NewDriver(m, b, logger)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore takes the lock so the database is never opened by a second
// daemon for the same session.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.AppDBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", db.Path()))
	return db, nil
}

func provideSyncEngine(db *store.DB, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, b, logger, cfg.Limits.MaxMessages)
}

func provideService(be backend.Backend, db *store.DB, engine *intsync.Engine, m *status.Machine, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *service.Inbox {
	return service.New(be, db, engine, m, b, logger, service.Options{
		Limits: inbox.Limits{
			Conversations:   cfg.Limits.Conversations,
			PerConversation: cfg.Limits.PerConversation,
		},
		MaxMessages: cfg.Limits.MaxMessages,
	})
}

func provideHTTPServer(svc *service.Inbox, cfg *config.Config, logger *zap.Logger) *api.HTTPServer {
	return api.NewHTTPServer(svc, cfg.HTTP, logger)
}

func provideRPCServer(p Params, svc *service.Inbox, b *bus.Bus, logger *zap.Logger) (*rpc.Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = session.SocketPath(p.SessionName)
	}
	return rpc.NewServer(socketPath, rpc.NewHandler(p.SessionName, svc, b, logger), logger)
}

type lifecycleParams struct {
	fx.In

	Config  *config.Config
	Lock    *lock.Lock
	DB      *store.DB
	Backend backend.Backend
	Engine  *intsync.Engine
	Driver  *status.Driver
	Machine *status.Machine
	Service *service.Inbox
	HTTP    *api.HTTPServer
	RPC     *rpc.Server
	Cron    *cron.Cron
	Bus     *bus.Bus
	Logger  *zap.Logger
}

type loginChecker interface {
	IsLoggedIn() bool
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleParams) error {
	logger := d.Logger
	if err := routines(d.Cron, d.Config, d.Service, d.Engine, d.Machine, d.Bus, logger); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Subscribers first, so nothing the backend reports is missed.
			d.Engine.Start(context.Background())
			d.Driver.Start(context.Background())

			reportPendingOutbox(d.DB, logger)

			go func() {
				if err := d.RPC.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			go func() {
				if err := d.HTTP.Start(); err != nil {
					logger.Error("HTTP server error", zap.Error(err))
				}
			}()
			d.Cron.Start()

			// Transition state based on auth status.
			if c, ok := d.Backend.(loginChecker); ok && !c.IsLoggedIn() {
				logger.Info("no credentials found, auth required")
				_ = d.Machine.Transition(status.AuthRequired)
			} else {
				_ = d.Machine.Transition(status.Connecting)
			}
			go func() {
				if err := d.Backend.Start(context.Background()); err != nil {
					logger.Error("backend start failed", zap.String("backend", d.Backend.Name()), zap.Error(err))
					_ = d.Machine.Fail(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			<-d.Cron.Stop().Done()
			d.Backend.Stop()
			if err := d.HTTP.Shutdown(ctx); err != nil {
				logger.Warn("HTTP shutdown", zap.Error(err))
			}
			d.RPC.Stop(ctx)
			d.Driver.Stop()
			d.Engine.Stop()
			if err := d.DB.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := d.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
	return nil
}

// reportPendingOutbox fails sends that were in flight when the previous
// daemon exited. Their outcome is unknown, so they are not retried.
func reportPendingOutbox(db *store.DB, logger *zap.Logger) {
	pending, err := db.PendingOutbox()
	if err != nil {
		logger.Warn("reading outbox", zap.Error(err))
		return
	}
	for _, e := range pending {
		logger.Warn("send interrupted by restart",
			zap.String("client_msg_id", e.ClientMsgID),
			zap.String("to", e.To),
		)
		if err := db.MarkOutboxFailed(e.ClientMsgID, "interrupted by daemon restart"); err != nil {
			logger.Warn("marking interrupted send", zap.Error(err))
		}
	}
}
