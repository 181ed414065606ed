// SPDX-License-Identifier: MPL-2.0

package game

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/valleymod/valleymod/pkg/platform"
)

// ErrGameVersionUnavailable is returned when the game version cannot be
// determined. It is transient: the mod loader writes its log on every launch.
var ErrGameVersionUnavailable = errors.New("game version unavailable")

// LogFileName is the mod loader's log of the last game session.
const LogFileName = "SMAPI-latest.txt"

// logVersionRegex matches the loader's startup line, e.g.
// "SMAPI 3.18.6 with Stardew Valley 1.5.6 build 22018 on Microsoft Windows 10".
var logVersionRegex = regexp.MustCompile(`with Stardew Valley ([0-9]+(?:\.[0-9]+)*)`)

// maxLogLines bounds how far into the log the startup line is searched for.
const maxLogLines = 200

// VersionSource reports the installed game version.
type VersionSource struct {
	override string
	logPath  string
}

// NewVersionSource returns a source that reports override when set and
// otherwise reads logPath. An empty logPath uses DefaultLogPath.
func NewVersionSource(override, logPath string) *VersionSource {
	if logPath == "" {
		logPath = DefaultLogPath(runtime.GOOS, os.Getenv)
	}
	return &VersionSource{override: strings.TrimSpace(override), logPath: logPath}
}

// GameVersion returns the game version.
func (v *VersionSource) GameVersion(ctx context.Context) (string, error) {
	if v.override != "" {
		return v.override, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if v.logPath == "" {
		return "", ErrGameVersionUnavailable
	}

	f, err := os.Open(v.logPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: no loader log at %s", ErrGameVersionUnavailable, v.logPath)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGameVersionUnavailable, err)
	}
	defer func() { _ = f.Close() }() // read-only file

	scanner := bufio.NewScanner(f)
	for n := 0; n < maxLogLines && scanner.Scan(); n++ {
		if m := logVersionRegex.FindStringSubmatch(scanner.Text()); m != nil {
			return m[1], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", ErrGameVersionUnavailable, v.logPath, err)
	}
	return "", fmt.Errorf("%w: no version line in %s", ErrGameVersionUnavailable, v.logPath)
}

// DefaultLogPath returns where the mod loader writes its log on goos, or "" when
// the location cannot be derived from the environment.
func DefaultLogPath(goos string, getenv func(string) string) string {
	var base string
	switch goos {
	case platform.Windows:
		base = getenv("APPDATA")
	default:
		base = getenv("XDG_CONFIG_HOME")
		if base == "" {
			if home := getenv("HOME"); home != "" {
				base = filepath.Join(home, ".config")
			}
		}
	}
	if base == "" {
		return ""
	}
	return filepath.Join(base, "StardewValley", "ErrorLogs", LogFileName)
}
