package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvBackend       = "INBOX_BACKEND"
	EnvHTTPAddr      = "INBOX_HTTP_ADDR"
	EnvAccessToken   = "WHATSAPP_ACCESS_TOKEN"
	EnvPhoneNumberID = "WHATSAPP_PHONE_NUMBER_ID"
	EnvAPIVersion    = "WHATSAPP_API_VERSION"
	EnvVerifyToken   = "WHATSAPP_WEBHOOK_VERIFY_TOKEN"
	EnvAppSecret     = "WHATSAPP_APP_SECRET"
	EnvAuthTimeout   = "INBOX_AUTH_TIMEOUT"
	EnvMaxMessages   = "INBOX_MAX_MESSAGES"
)

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overrides cfg fields from the environment.
func ApplyEnv(cfg *Config) {
	cfg.Backend = getEnvStringOrDefault(EnvBackend, cfg.Backend)
	cfg.HTTP.Addr = getEnvStringOrDefault(EnvHTTPAddr, cfg.HTTP.Addr)
	cfg.Cloud.AccessToken = getEnvStringOrDefault(EnvAccessToken, cfg.Cloud.AccessToken)
	cfg.Cloud.PhoneNumberID = getEnvStringOrDefault(EnvPhoneNumberID, cfg.Cloud.PhoneNumberID)
	cfg.Cloud.APIVersion = getEnvStringOrDefault(EnvAPIVersion, cfg.Cloud.APIVersion)
	cfg.Cloud.VerifyToken = getEnvStringOrDefault(EnvVerifyToken, cfg.Cloud.VerifyToken)
	cfg.Cloud.AppSecret = getEnvStringOrDefault(EnvAppSecret, cfg.Cloud.AppSecret)
	cfg.Automation.AuthTimeout.Duration = getEnvDurationOrDefault(EnvAuthTimeout, cfg.Automation.AuthTimeout.Duration)
	cfg.Limits.MaxMessages = getEnvIntOrDefault(EnvMaxMessages, cfg.Limits.MaxMessages)
}

func getEnvStringOrDefault(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(name string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return def
	}
	return v
}

func getEnvDurationOrDefault(name string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return def
	}
	return d
}
