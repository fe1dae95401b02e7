package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Backend modes.
const (
	BackendAuto       = "auto"
	BackendAutomation = "automation"
	BackendCloud      = "cloud"
	BackendFixture    = "fixture"
)

// Config represents the global ~/.wpp-inbox/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
	Backend        string `toml:"backend"`

	HTTP       HTTPConfig       `toml:"http"`
	Cloud      CloudConfig      `toml:"cloud"`
	Automation AutomationConfig `toml:"automation"`
	Limits     LimitsConfig     `toml:"limits"`
	Poll       PollConfig       `toml:"poll"`
}

// HTTPConfig configures the JSON API and webhook listener.
type HTTPConfig struct {
	Addr        string `toml:"addr"`
	CORSOrigins string `toml:"cors_origins"`
}

// CloudConfig holds WhatsApp Cloud API credentials.
type CloudConfig struct {
	AccessToken   string  `toml:"access_token"`
	PhoneNumberID string  `toml:"phone_number_id"`
	APIVersion    string  `toml:"api_version"`
	VerifyToken   string  `toml:"verify_token"`
	AppSecret     string  `toml:"app_secret"`
	BaseURL       string  `toml:"base_url"`
	RatePerSecond float64 `toml:"rate_per_second"`
}

// AutomationConfig tunes the linked-device backend.
type AutomationConfig struct {
	AuthTimeout     Duration `toml:"auth_timeout"`
	ContactRefresh  Duration `toml:"contact_refresh"`
	ProfilePictures int      `toml:"profile_pictures"`
}

// LimitsConfig bounds what the daemon keeps and serves.
type LimitsConfig struct {
	Conversations   int `toml:"conversations"`
	PerConversation int `toml:"per_conversation"`
	MaxMessages     int `toml:"max_messages"`
}

// PollConfig sets client polling intervals.
type PollConfig struct {
	Contacts      Duration `toml:"contacts"`
	Messages      Duration `toml:"messages"`
	Status        Duration `toml:"status"`
	StatusCeiling Duration `toml:"status_ceiling"`
}

// Duration is a time.Duration written as a string ("10s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultSession: "main",
		Backend:        BackendAuto,
		HTTP: HTTPConfig{
			Addr:        "127.0.0.1:3001",
			CORSOrigins: "*",
		},
		Cloud: CloudConfig{
			APIVersion:    "v18.0",
			BaseURL:       "https://graph.facebook.com",
			RatePerSecond: 20,
		},
		Automation: AutomationConfig{
			AuthTimeout:     Duration{2 * time.Minute},
			ContactRefresh:  Duration{10 * time.Minute},
			ProfilePictures: 50,
		},
		Limits: LimitsConfig{
			Conversations:   5,
			PerConversation: 4,
			MaxMessages:     1000,
		},
		Poll: PollConfig{
			Contacts:      Duration{10 * time.Second},
			Messages:      Duration{3 * time.Second},
			Status:        Duration{2 * time.Second},
			StatusCeiling: Duration{2 * time.Minute},
		},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithDefaults reads path over Default. A missing file is not an error.
func LoadWithDefaults(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
