package daemon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/wpp-inbox/internal/backend"
	"github.com/matheus3301/wpp-inbox/internal/bus"
	"github.com/matheus3301/wpp-inbox/internal/cloudapi"
	"github.com/matheus3301/wpp-inbox/internal/config"
	"github.com/matheus3301/wpp-inbox/internal/fixture"
	"github.com/matheus3301/wpp-inbox/internal/session"
	"github.com/matheus3301/wpp-inbox/internal/wa"
)

// chooseBackend resolves the configured mode to a concrete backend name.
// In auto mode real Cloud API credentials win, then an existing linked
// device, then the fixture.
func chooseBackend(cfg *config.Config, hasDevice bool) (string, error) {
	switch cfg.Backend {
	case config.BackendCloud:
		return backend.Cloud, nil
	case config.BackendAutomation:
		return backend.Automation, nil
	case config.BackendFixture:
		return backend.Fixture, nil
	case config.BackendAuto, "":
		switch {
		case cloudConfig(cfg).IsConfigured():
			return backend.Cloud, nil
		case hasDevice:
			return backend.Automation, nil
		default:
			return backend.Fixture, nil
		}
	default:
		return "", fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func cloudConfig(cfg *config.Config) cloudapi.Config {
	return cloudapi.Config{
		AccessToken:   cfg.Cloud.AccessToken,
		PhoneNumberID: cfg.Cloud.PhoneNumberID,
		APIVersion:    cfg.Cloud.APIVersion,
		VerifyToken:   cfg.Cloud.VerifyToken,
		AppSecret:     cfg.Cloud.AppSecret,
		BaseURL:       cfg.Cloud.BaseURL,
		RatePerSecond: cfg.Cloud.RatePerSecond,
	}
}

func provideBackend(p Params, cfg *config.Config, b *bus.Bus, logger *zap.Logger) (backend.Backend, error) {
	deviceDB := session.DeviceDBPath(p.SessionName)

	probeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	name, err := chooseBackend(cfg, cfg.Backend == config.BackendAuto && wa.HasDevice(probeCtx, deviceDB))
	if err != nil {
		return nil, err
	}
	logger.Info("backend selected", zap.String("mode", cfg.Backend), zap.String("backend", name))

	switch name {
	case backend.Cloud:
		cc := cloudConfig(cfg)
		if !cc.IsConfigured() {
			logger.Warn("cloud backend selected without real credentials")
		}
		return cloudapi.New(cc, nil, b, logger), nil
	case backend.Automation:
		return wa.New(context.Background(), wa.Options{
			DeviceDBPath:    deviceDB,
			AuthTimeout:     cfg.Automation.AuthTimeout.Duration,
			ProfilePictures: cfg.Automation.ProfilePictures,
		}, b, logger)
	default:
		return fixture.New(b, logger, fixture.Options{}), nil
	}
}
