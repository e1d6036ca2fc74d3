package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/briefer/config"
)

func TestNew_WritesJSONToOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "briefer.log")
	logger, err := New(config.LogConfig{Level: "info", Format: "json"}, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("run settled")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"run settled"`) {
		t.Fatalf("expected json entry, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry should be filtered at info level: %q", out)
	}
}

func TestNew_RejectsBadSettings(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New(config.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
