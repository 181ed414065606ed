// SPDX-License-Identifier: MPL-2.0

package game

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func makeGameFolder(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Stardew Valley.dll"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func noEnv(string) string { return "" }

func TestDiscover_ConfiguredPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	makeGameFolder(t, dir)

	inst, err := Discover(context.Background(), DiscoverOptions{Path: dir, GOOS: "linux", HomeDir: t.TempDir(), Getenv: noEnv})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if inst.Path != dir || inst.Store != StoreCustom || inst.ModsPath != filepath.Join(dir, ModsFolder) {
		t.Errorf("installation = %+v", inst)
	}
}

func TestDiscover_ConfiguredPathWithoutGame(t *testing.T) {
	t.Parallel()

	_, err := Discover(context.Background(), DiscoverOptions{Path: t.TempDir(), GOOS: "linux", Getenv: noEnv})
	if !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("error = %v, want ErrGameNotFound", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || len(nf.Tried) != 1 {
		t.Errorf("NotFoundError = %+v", nf)
	}
}

func TestDiscover_ModsDirOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	makeGameFolder(t, dir)
	abs := filepath.Join(t.TempDir(), "mods")

	tests := map[string]string{
		"ModsDisabled": filepath.Join(dir, "ModsDisabled"),
		abs:            abs,
	}
	for override, want := range tests {
		inst, err := Discover(context.Background(), DiscoverOptions{Path: dir, ModsDir: override, GOOS: "linux", Getenv: noEnv})
		if err != nil {
			t.Fatal(err)
		}
		if inst.ModsPath != want {
			t.Errorf("ModsPath(%q) = %q, want %q", override, inst.ModsPath, want)
		}
	}
}

func TestDiscover_SteamLibraryFolder(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	library := filepath.Join(t.TempDir(), "SteamLibrary")
	steamRoot := filepath.Join(home, ".local", "share", "Steam")
	if err := os.MkdirAll(filepath.Join(steamRoot, "steamapps"), 0o755); err != nil {
		t.Fatal(err)
	}
	vdf := "\"libraryfolders\"\n{\n\t\"0\"\n\t{\n\t\t\"path\"\t\t\"" + steamRoot + "\"\n\t}\n\t\"1\"\n\t{\n\t\t\"path\"\t\t\"" + library + "\"\n\t}\n}\n"
	if err := os.WriteFile(filepath.Join(steamRoot, "steamapps", "libraryfolders.vdf"), []byte(vdf), 0o644); err != nil {
		t.Fatal(err)
	}
	gameDir := filepath.Join(library, "steamapps", "common", FolderName)
	makeGameFolder(t, gameDir)

	inst, err := Discover(context.Background(), DiscoverOptions{GOOS: "linux", HomeDir: home, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if inst.Path != gameDir || inst.Store != StoreSteam {
		t.Errorf("installation = %+v, want steam at %s", inst, gameDir)
	}
}

func TestDiscover_GOGFallback(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	gameDir := filepath.Join(home, "GOG Games", FolderName, "game")
	makeGameFolder(t, gameDir)

	inst, err := Discover(context.Background(), DiscoverOptions{GOOS: "linux", HomeDir: home, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if inst.Store != StoreGOG || inst.Path != gameDir {
		t.Errorf("installation = %+v", inst)
	}
}

func TestParseLibraryFolders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want []string
	}{
		{
			name: "current layout",
			data: `"libraryfolders"
{
	"1"
	{
		"path"		"D:\\SteamLibrary"
	}
	"0"
	{
		"path"		"C:\\Program Files (x86)\\Steam"
		"label"		""
		"apps"
		{
			"413150"		"1234"
		}
	}
}`,
			want: []string{`C:\Program Files (x86)\Steam`, `D:\SteamLibrary`},
		},
		{
			name: "legacy layout",
			data: `"LibraryFolders"
{
	"TimeNextStatsReport"		"1234567890"
	"ContentStatsID"		"-42"
	"1"		"E:\\Games\\Steam"
}`,
			want: []string{`E:\Games\Steam`},
		},
		{
			name: "no libraries",
			data: `"libraryfolders"
{
}`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLibraryFolders(strings.NewReader(tt.data))
			if err != nil {
				t.Fatalf("ParseLibraryFolders() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseLibraryFolders = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	withLine := filepath.Join(dir, "with.txt")
	withoutLine := filepath.Join(dir, "without.txt")
	log := "[12:00:00 INFO  SMAPI] SMAPI 3.18.6 with Stardew Valley 1.5.6 build 22018 on Microsoft Windows 10 Pro\n"
	if err := os.WriteFile(withLine, []byte(log), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(withoutLine, []byte("nothing useful\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		override string
		path     string
		want     string
		wantErr  bool
	}{
		{name: "override wins", override: "1.6.8", path: withLine, want: "1.6.8"},
		{name: "from log", path: withLine, want: "1.5.6"},
		{name: "missing log", path: filepath.Join(dir, "absent.txt"), wantErr: true},
		{name: "no version line", path: withoutLine, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewVersionSource(tt.override, tt.path).GameVersion(context.Background())
			if tt.wantErr {
				if !errors.Is(err, ErrGameVersionUnavailable) {
					t.Errorf("error = %v, want ErrGameVersionUnavailable", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("GameVersion() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestDefaultLogPath(t *testing.T) {
	t.Parallel()

	env := map[string]string{"APPDATA": `C:\Users\me\AppData\Roaming`, "HOME": "/home/me"}
	getenv := func(k string) string { return env[k] }

	if got := DefaultLogPath("linux", getenv); got != filepath.Join("/home/me", ".config", "StardewValley", "ErrorLogs", LogFileName) {
		t.Errorf("linux log path = %q", got)
	}
	if got := DefaultLogPath("windows", getenv); got != filepath.Join(env["APPDATA"], "StardewValley", "ErrorLogs", LogFileName) {
		t.Errorf("windows log path = %q", got)
	}
	if got := DefaultLogPath("linux", noEnv); got != "" {
		t.Errorf("log path without env = %q, want empty", got)
	}
}
