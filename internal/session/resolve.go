package session

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/matheus3301/wpp-inbox/internal/config"
)

const DefaultSessionName = "main"

// ErrInvalidName is returned for session names that cannot be used as a
// directory name.
var ErrInvalidName = errors.New("invalid session name")

// Resolve picks the session: the --session flag, then default_session from
// config.toml when it is a valid name, then "main".
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && ValidateName(cfg.DefaultSession) == nil {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}

// LoadConfig reads the global config over defaults and applies the
// optional .env file and process environment on top.
func LoadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(EnvPath(), ".env"); err != nil {
		return nil, err
	}
	cfg, err := config.LoadWithDefaults(ConfigPath())
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)
	return cfg, nil
}

var nameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName accepts 1-64 lowercase letters, digits, '-' and '_'.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("%w %q: use 1-64 of [a-z0-9_-]", ErrInvalidName, name)
	}
	return nil
}
