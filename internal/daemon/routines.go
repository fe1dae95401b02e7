package daemon

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/config"
	"github.com/matheus3301/wpp-inbox/internal/service"
	"github.com/matheus3301/wpp-inbox/internal/status"
	intsync "github.com/matheus3301/wpp-inbox/internal/sync"
)

const (
	trimEvery   = 10 * time.Minute
	healthEvery = 5 * time.Minute
)

func provideScheduler(logger *zap.Logger) *cron.Cron {
	return cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger{logger.Named("cron").Sugar()})),
	)
}

// routines registers the daemon's periodic jobs on c.
func routines(c *cron.Cron, cfg *config.Config, svc *service.Inbox, engine *intsync.Engine, machine *status.Machine, b *bus.Bus, logger *zap.Logger) error {
	if d := cfg.Automation.ContactRefresh.Duration; d > 0 {
		if _, err := c.AddFunc("@every "+d.String(), func() {
			if machine.Current() != status.Ready {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := svc.RefreshContacts(ctx); err != nil {
				logger.Warn("contact refresh failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if _, err := c.AddFunc("@every "+trimEvery.String(), func() {
		if _, err := engine.Trim(); err != nil {
			logger.Warn("trim failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	_, err := c.AddFunc("@every "+healthEvery.String(), func() {
		p, err := engine.Progress()
		if err != nil {
			logger.Warn("health check failed", zap.Error(err))
			return
		}
		logger.Info("health",
			zap.String("state", string(machine.Current())),
			zap.Int64("messages", p.Messages),
			zap.Int64("contacts", p.Contacts),
			zap.Int("subscribers", b.Subscribers()),
			zap.Uint64("dropped_events", b.Dropped()),
			zap.Duration("uptime", svc.Uptime().Round(time.Second)),
		)
	})
	return err
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
