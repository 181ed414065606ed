// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Game.ModsDir != "Mods" {
		t.Errorf("ModsDir = %q, want Mods", cfg.Game.ModsDir)
	}
	if cfg.Catalog.BaseURL != DefaultCatalogURL || cfg.Catalog.SearchURL != DefaultSearchURL {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Catalog.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Catalog.Timeout)
	}
	if cfg.Log.Level != LogLevelInfo || cfg.Log.Format != LogFormatText {
		t.Errorf("log = %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.cue")
	writeConfig(t, path, `
game: {
	version:  "1.5.6"
	mods_dir: "ModsAlt"
}
catalog: {
	timeout:             "5s"
	requests_per_minute: 12
}
log: format: "json"
`)

	cfg, resolved, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Game.Version != "1.5.6" || cfg.Game.ModsDir != "ModsAlt" {
		t.Errorf("game = %+v", cfg.Game)
	}
	if cfg.Catalog.Timeout != 5*time.Second || cfg.Catalog.RequestsPerMinute != 12 {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Catalog.BaseURL != DefaultCatalogURL {
		t.Errorf("omitted base_url should keep the default, got %q", cfg.Catalog.BaseURL)
	}
	if cfg.Log.Format != LogFormatJSON || cfg.Log.Level != LogLevelInfo {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{name: "unknown section", content: `ui: color: "dark"`, wantSub: "ui"},
		{name: "unknown field", content: `game: steam_id: 1`, wantSub: "steam_id"},
		{name: "bad level", content: `log: level: "loud"`, wantSub: "log.level"},
		{name: "negative rate", content: `catalog: requests_per_minute: -1`, wantSub: "requests_per_minute"},
		{name: "bad url", content: `catalog: base_url: "ftp://x"`, wantSub: "base_url"},
		{name: "bad version", content: `game: version: "latest"`, wantSub: "version"},
		{name: "syntax", content: `game: {`, wantSub: "config.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "config.cue")
			writeConfig(t, path, tt.content)
			_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, "config.cue"), `game: path: "/from/file"`)
	t.Setenv("VALLEYMOD_GAME_PATH", "/from/env")
	t.Setenv("VALLEYMOD_CATALOG_TIMEOUT", "45s")
	t.Setenv("VALLEYMOD_LOG_LEVEL", "debug")

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("loadWithOptions() error = %v", err)
	}
	if cfg.Game.Path != "/from/env" {
		t.Errorf("Game.Path = %q, want env value", cfg.Game.Path)
	}
	if cfg.Catalog.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v", cfg.Catalog.Timeout)
	}
	if cfg.Log.Level != LogLevelDebug {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("VALLEYMOD_LOG_FORMAT", "yaml")

	_, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	want := DefaultConfig()
	want.Game.Path = `C:\Games\Stardew Valley`
	want.Catalog.Timeout = 90 * time.Second
	want.State.Path = "/tmp/state.toml"
	want.Log.File = "/tmp/valleymod.log"

	path := filepath.Join(t.TempDir(), "sub", "config.cue")
	written, err := CreateDefaultConfig(path, want)
	if err != nil || !written {
		t.Fatalf("CreateDefaultConfig() = %v, %v", written, err)
	}
	if written, err := CreateDefaultConfig(path, DefaultConfig()); err != nil || written {
		t.Errorf("second CreateDefaultConfig() = %v, %v; want existing file kept", written, err)
	}

	got, _, err := loadWithOptions(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("loading generated config: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip = %+v\nwant %+v", got, want)
	}
}

func TestConfigDir_Override(t *testing.T) {
	SetConfigDirOverride("/tmp/valleymod-test")
	t.Cleanup(Reset)

	dir, err := ConfigDir()
	if err != nil || dir != "/tmp/valleymod-test" {
		t.Errorf("ConfigDir() = %q, %v", dir, err)
	}
	statePath, err := (&Config{}).StatePath()
	if err != nil || statePath != filepath.Join("/tmp/valleymod-test", StateFileName) {
		t.Errorf("StatePath() = %q, %v", statePath, err)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME applies to Linux only")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	dir, err := ConfigDir()
	if err != nil || dir != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("ConfigDir() = %q, %v", dir, err)
	}
}

func TestStatePath_Explicit(t *testing.T) {
	t.Parallel()

	cfg := &Config{State: StateConfig{Path: "/data/state.toml"}}
	if got, err := cfg.StatePath(); err != nil || got != "/data/state.toml" {
		t.Errorf("StatePath() = %q, %v", got, err)
	}
}
