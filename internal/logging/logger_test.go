package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileOnlyWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "inboxd.log")

	logger, err := NewFileOnly(path, "work")
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", line)
	}
	if entry["msg"] != "hello" || entry["session"] != "work" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("missing ts field")
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("INBOX_LOG_LEVEL", "debug")
	if lvl := levelFromEnv(); lvl.String() != "debug" {
		t.Errorf("level = %s, want debug", lvl)
	}
	t.Setenv("INBOX_LOG_LEVEL", "bogus")
	if lvl := levelFromEnv(); lvl.String() != "info" {
		t.Errorf("level = %s, want info", lvl)
	}
}
