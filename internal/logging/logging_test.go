// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valleymod/valleymod/internal/config"
)

func TestNew_Levels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "mod", "A")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "mod=A") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("catalog query", "count", 3)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not JSON: %q (%v)", buf.String(), err)
	}
	if entry["msg"] != "catalog query" || entry["count"] != float64(3) {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]config.LogConfig{
		"level":  {Level: "loud", Format: "text"},
		"format": {Level: "info", Format: "yaml"},
	}
	for name, cfg := range tests {
		if _, err := New(cfg, &bytes.Buffer{}); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestNew_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "valleymod.log")
	var console bytes.Buffer
	logger, err := New(config.LogConfig{Level: "debug", Format: "logfmt", File: path, MaxSizeMB: 1}, &console)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Debug("rescan", "mods", 2)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "msg=rescan") || !strings.Contains(console.String(), "msg=rescan") {
		t.Errorf("file = %q, console = %q", data, console.String())
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	l := Discard()
	l.Error("nothing")
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
