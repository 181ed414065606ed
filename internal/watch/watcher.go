// SPDX-License-Identifier: MPL-2.0

// Package watch monitors the mods folder and reports, after a quiet period,
// which mod folders changed.
//
// A change is either an event on a file matching one of the watch patterns
// (manifest.json by default) or a top-level folder being created, removed or
// renamed. Hidden folders are skipped the same way the mod loader skips them.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce = 750 * time.Millisecond

	// ManifestPattern selects mod manifests at any depth.
	ManifestPattern = "**/manifest.json"
)

var defaultIgnores = []string{
	".*",
	".*/**",
	"**/.*/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
	"**/Thumbs.db",
}

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// ModsDir is the folder to watch. It must exist.
		ModsDir string
		// Patterns are doublestar globs, relative to ModsDir, selecting the
		// files whose events count as changes. Empty means ManifestPattern.
		Patterns []string
		// Ignore adds patterns to the built-in ignores.
		Ignore []string
		// Debounce is the quiet period before OnChange fires.
		Debounce time.Duration
		// OnChange receives the coalesced change set. Errors are logged.
		OnChange func(ctx context.Context, change Change) error
		Logger   *log.Logger
	}

	// Change is a coalesced set of filesystem events.
	Change struct {
		// Paths are the changed paths, slash-separated and relative to ModsDir.
		Paths []string
		// Folders are the top-level mod folders the paths belong to.
		Folders []string
	}

	// Watcher reports debounced changes below a mods folder.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		patterns []string
		ignores  []string
		debounce time.Duration
		baseDir  string
		logger   *log.Logger
		started  atomic.Bool
	}
)

// New validates cfg and registers every non-ignored directory below ModsDir.
func New(cfg Config) (*Watcher, error) {
	if cfg.ModsDir == "" {
		return nil, errors.New("watch: mods folder not set")
	}
	absBase, err := filepath.Abs(cfg.ModsDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve mods folder: %w", err)
	}
	if info, err := os.Stat(absBase); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("watch: mods folder %s is not a directory", absBase)
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{ManifestPattern}
	}
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		patterns: patterns,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		debounce: debounce,
		baseDir:  absBase,
		logger:   logger,
	}
	if err := w.addTree(absBase); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is canceled. Callbacks never overlap: a
// change arriving while OnChange runs is delivered on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing watcher", "err", err)
		}
	}()

	d := newDebouncer(w.debounce, func(paths []string) {
		if ctx.Err() != nil || w.cfg.OnChange == nil {
			return
		}
		change := newChange(paths)
		w.logger.Debug("mods folder changed", "folders", change.Folders)
		if err := w.cfg.OnChange(ctx, change); err != nil {
			w.logger.Error("handling change", "folders", change.Folders, "err", err)
		}
	})
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if rel, ok := w.relevant(evt); ok {
				d.add(rel)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if fatalWatchError(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// relevant reports whether evt is a change and returns its path relative to
// the mods folder. New directories are registered as a side effect.
func (w *Watcher) relevant(evt fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(w.baseDir, evt.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || matchAny(w.ignores, rel) {
		return "", false
	}

	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.addTree(evt.Name); err != nil {
				w.logger.Warn("watching new folder", "folder", rel, "err", err)
			}
		}
	}

	topLevel := !strings.Contains(rel, "/")
	if topLevel && evt.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		return rel, true
	}
	return rel, matchAny(w.patterns, rel)
}

// addTree registers root and its non-ignored subdirectories. Unreadable
// directories are logged and skipped.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping unreadable path", "path", p, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.baseDir, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && (matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch: add %s: %w", p, err)
		}
		return nil
	})
}

func newChange(paths []string) Change {
	slices.Sort(paths)
	folders := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		top, _, _ := strings.Cut(p, "/")
		folders[top] = struct{}{}
	}
	return Change{Paths: paths, Folders: slices.Sorted(maps.Keys(folders))}
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q", label, pat)
		}
	}
	return nil
}

// debouncer collects paths and flushes them once no path has been added for
// the configured delay. Flushes are serialized.
type debouncer struct {
	delay time.Duration
	flush func([]string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	running sync.Mutex
}

func newDebouncer(delay time.Duration, flush func([]string)) *debouncer {
	return &debouncer{delay: delay, flush: flush, pending: make(map[string]struct{})}
}

func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[path] = struct{}{}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fire)
		return
	}
	d.timer.Reset(d.delay)
}

func (d *debouncer) fire() {
	d.running.Lock()
	defer d.running.Unlock()

	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := slices.Collect(maps.Keys(d.pending))
	clear(d.pending)
	d.mu.Unlock()

	d.flush(paths)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
