// SPDX-License-Identifier: MPL-2.0

// Package game locates the game installation and reports its version.
package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/andygrunwald/vdf"
	"github.com/charmbracelet/log"

	"github.com/valleymod/valleymod/pkg/platform"
)

const (
	// FolderName is the game's folder name in store library layouts.
	FolderName = "Stardew Valley"

	// ModsFolder is the mod loader's mods directory inside the game folder.
	ModsFolder = "Mods"

	steamAppsCommon = "steamapps/common"
)

// Storefront names for Installation.Store.
const (
	StoreSteam  = "steam"
	StoreGOG    = "gog"
	StoreCustom = "custom"
)

// ErrGameNotFound is returned when no candidate folder contains the game.
var ErrGameNotFound = errors.New("game installation not found")

// gameBinaries are the files any of which marks a folder as a game folder.
var gameBinaries = []string{"Stardew Valley.dll", "Stardew Valley.exe", "StardewValley", "StardewValley.exe"}

type (
	// Installation is a located game folder.
	Installation struct {
		Path     string
		ModsPath string
		Store    string
	}

	// DiscoverOptions controls where Discover looks.
	DiscoverOptions struct {
		// Path is a user-configured game folder. When set it is the only candidate.
		Path string
		// ModsDir overrides the mods directory; relative paths are resolved
		// against the game folder.
		ModsDir string
		// GOOS selects the candidate layout. Defaults to runtime.GOOS.
		GOOS string
		// HomeDir defaults to os.UserHomeDir.
		HomeDir string
		// Getenv defaults to os.Getenv.
		Getenv func(string) string
		Logger *log.Logger
	}

	candidate struct {
		path  string
		store string
	}
)

// Discover returns the first candidate folder that contains the game.
func Discover(ctx context.Context, opts DiscoverOptions) (Installation, error) {
	opts = opts.withDefaults()

	var candidates []candidate
	if opts.Path != "" {
		candidates = []candidate{{path: opts.Path, store: StoreCustom}}
	} else {
		candidates = defaultCandidates(opts)
	}

	var tried []string
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return Installation{}, err
		}
		tried = append(tried, c.path)
		if !IsGameFolder(c.path) {
			opts.Logger.Debug("not a game folder", "path", c.path)
			continue
		}
		inst := Installation{Path: c.path, ModsPath: modsPath(c.path, opts.ModsDir), Store: c.store}
		opts.Logger.Debug("game found", "path", inst.Path, "store", inst.Store)
		return inst, nil
	}
	return Installation{}, &NotFoundError{Tried: tried}
}

// NotFoundError lists the folders Discover checked.
type NotFoundError struct {
	Tried []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s (checked %d locations)", ErrGameNotFound, len(e.Tried))
}

// Unwrap returns ErrGameNotFound for errors.Is.
func (e *NotFoundError) Unwrap() error { return ErrGameNotFound }

// IsGameFolder reports whether dir contains one of the game's binaries.
func IsGameFolder(dir string) bool {
	for _, name := range gameBinaries {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func (o DiscoverOptions) withDefaults() DiscoverOptions {
	if o.GOOS == "" {
		o.GOOS = runtime.GOOS
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if o.HomeDir == "" {
		o.HomeDir, _ = os.UserHomeDir()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

func modsPath(gameDir, override string) string {
	switch {
	case override == "":
		return filepath.Join(gameDir, ModsFolder)
	case filepath.IsAbs(override):
		return override
	default:
		return filepath.Join(gameDir, override)
	}
}

// defaultCandidates lists store install locations for the platform: Steam
// library folders first, then the default Steam and GOG paths.
func defaultCandidates(opts DiscoverOptions) []candidate {
	var steamRoots, gogPaths []string
	home := opts.HomeDir

	switch opts.GOOS {
	case platform.Windows:
		programFilesX86 := opts.Getenv("ProgramFiles(x86)")
		if programFilesX86 == "" {
			programFilesX86 = `C:\Program Files (x86)`
		}
		steamRoots = []string{filepath.Join(programFilesX86, "Steam")}
		gogPaths = []string{
			filepath.Join(programFilesX86, "GOG Galaxy", "Games", FolderName),
			filepath.Join(programFilesX86, "GOG Games", FolderName),
			filepath.Join(`C:\GOG Games`, FolderName),
		}
	case platform.Darwin:
		steamRoots = []string{filepath.Join(home, "Library", "Application Support", "Steam")}
		gogPaths = []string{"/Applications/Stardew Valley.app/Contents/MacOS"}
	default:
		dataHome := opts.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			dataHome = filepath.Join(home, ".local", "share")
		}
		steamRoots = []string{
			filepath.Join(dataHome, "Steam"),
			filepath.Join(home, ".steam", "steam"),
			filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"),
		}
		gogPaths = []string{filepath.Join(home, "GOG Games", FolderName, "game")}
	}

	var out []candidate
	seen := make(map[string]bool)
	add := func(path, store string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		out = append(out, candidate{path: path, store: store})
	}

	for _, root := range steamRoots {
		libraries := append([]string{root}, steamLibraries(root, opts.Logger)...)
		for _, lib := range libraries {
			dir := filepath.Join(lib, filepath.FromSlash(steamAppsCommon), FolderName)
			if opts.GOOS == platform.Darwin {
				dir = filepath.Join(dir, "Contents", "MacOS")
			}
			add(dir, StoreSteam)
		}
	}
	for _, p := range gogPaths {
		add(p, StoreGOG)
	}
	return out
}

// steamLibraries reads the extra library folders registered with a Steam install.
func steamLibraries(steamRoot string, logger *log.Logger) []string {
	f, err := os.Open(filepath.Join(steamRoot, "steamapps", "libraryfolders.vdf"))
	if err != nil {
		return nil
	}
	defer f.Close()

	libs, err := ParseLibraryFolders(f)
	if err != nil {
		logger.Warn("unreadable steam library list", "root", steamRoot, "err", err)
		return nil
	}
	logger.Debug("steam libraries", "root", steamRoot, "count", len(libs))
	return libs
}

// ParseLibraryFolders extracts library paths from a Steam libraryfolders.vdf
// document, ordered by library index. Both the current layout (numbered
// blocks with a "path" key) and the legacy one (numbered keys holding the
// path) are understood.
func ParseLibraryFolders(r io.Reader) ([]string, error) {
	doc, err := vdf.NewParser(r).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse libraryfolders.vdf: %w", err)
	}

	var folders map[string]any
	for key, v := range doc {
		if strings.EqualFold(key, "libraryfolders") {
			folders, _ = v.(map[string]any)
			break
		}
	}

	type entry struct {
		index int
		path  string
	}
	var entries []entry
	for key, v := range folders {
		index, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		var path string
		switch v := v.(type) {
		case string:
			path = v
		case map[string]any:
			path, _ = v["path"].(string)
		}
		if path == "" {
			continue
		}
		// Steam writes backslashes escaped.
		entries = append(entries, entry{index, strings.ReplaceAll(path, `\\`, `\`)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.path
	}
	return out, nil
}
