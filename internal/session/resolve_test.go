package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	for _, name := range []string{"main", "work2", "family-phone", "cloud_api", strings.Repeat("x", 64)} {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v", name, err)
		}
	}
	for _, name := range []string{"", "Work", "my phone", "../etc", "a.b", strings.Repeat("x", 65)} {
		if err := ValidateName(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestResolveFromConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	write := func(body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	write(`default_session = "work"` + "\n")
	if got := Resolve(""); got != "work" {
		t.Errorf("Resolve() = %q, want work", got)
	}
	if got := Resolve("family"); got != "family" {
		t.Errorf("flag did not win: %q", got)
	}

	write(`default_session = "Not Valid"` + "\n")
	if got := Resolve(""); got != DefaultSessionName {
		t.Errorf("invalid default_session resolved to %q", got)
	}
}
