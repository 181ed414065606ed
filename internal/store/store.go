// SPDX-License-Identifier: MPL-2.0

// Package store persists the installed mods, their manifest projections and
// their dependency rules in a TOML state file.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/valleymod/valleymod/internal/host"
	"github.com/valleymod/valleymod/internal/rules"
	"github.com/valleymod/valleymod/pkg/manifest"
)

const (
	// FileName is the default state file name.
	FileName = "state.toml"

	// formatVersion is written to every state file.
	formatVersion = 1
)

// ErrUnsupportedFormat is returned for state files written by a newer release.
var ErrUnsupportedFormat = errors.New("unsupported state file format")

type (
	// FileStore implements host.Store on top of a single TOML file. Every
	// mutation is a read-modify-write of the whole file under a mutex, and the
	// file is replaced atomically, so each call is applied entirely or not at all.
	FileStore struct {
		path   string
		mu     sync.Mutex
		now    func() time.Time
		logger *log.Logger
	}

	// Option configures a FileStore.
	Option func(*FileStore)

	document struct {
		Format int         `toml:"format"`
		Mods   []modRecord `toml:"mods"`
	}

	modRecord struct {
		ID          string           `toml:"id"`
		Name        string           `toml:"name,omitempty"`
		Enabled     bool             `toml:"enabled"`
		InstalledAt time.Time        `toml:"installed_at"`
		Folders     []string         `toml:"folders,omitempty"`
		Manifests   []map[string]any `toml:"manifests,omitempty"`
		Rules       []rules.Rule     `toml:"rules,omitempty"`
	}
)

var _ host.Store = (*FileStore)(nil)

// WithLogger sets the store's logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for installation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a store backed by path. The file is created on the first write.
func New(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:   path,
		now:    time.Now,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewModID returns a fresh host id for an installed mod.
func NewModID() string {
	return uuid.NewString()
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// InstalledMods returns every installed mod in installation order.
func (s *FileStore) InstalledMods(ctx context.Context) (host.InstalledMods, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	mods := make(host.InstalledMods, 0, len(doc.Mods))
	for _, rec := range doc.Mods {
		mods = append(mods, rec.toMod())
	}
	return mods, nil
}

// Mod returns the installed mod with host id id.
func (s *FileStore) Mod(ctx context.Context, id string) (host.InstalledMod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return host.InstalledMod{}, err
	}
	i := doc.index(id)
	if i < 0 {
		return host.InstalledMod{}, &host.ModNotFoundError{ID: id}
	}
	return doc.Mods[i].toMod(), nil
}

// PutMod inserts mod, or replaces the mod with the same host id in place. A
// mod without an id is assigned one; a zero InstalledAt is set to now.
func (s *FileStore) PutMod(ctx context.Context, mod host.InstalledMod) error {
	return s.update(ctx, func(doc *document) error {
		if mod.ID == "" {
			mod.ID = NewModID()
		}
		if mod.InstalledAt.IsZero() {
			mod.InstalledAt = s.now().UTC()
		}
		rec := recordFor(mod)
		if i := doc.index(mod.ID); i >= 0 {
			doc.Mods[i] = rec
			return nil
		}
		doc.Mods = append(doc.Mods, rec)
		return nil
	})
}

// SetEnabled changes a mod's enabled flag.
func (s *FileStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return s.update(ctx, func(doc *document) error {
		i := doc.index(id)
		if i < 0 {
			return &host.ModNotFoundError{ID: id}
		}
		doc.Mods[i].Enabled = enabled
		return nil
	})
}

// RemoveMod forgets a mod and its rules.
func (s *FileStore) RemoveMod(ctx context.Context, id string) error {
	return s.update(ctx, func(doc *document) error {
		i := doc.index(id)
		if i < 0 {
			return &host.ModNotFoundError{ID: id}
		}
		doc.Mods = slices.Delete(doc.Mods, i, i+1)
		return nil
	})
}

// RemoveRules deletes every stored rule of ownerID equal to one in list.
func (s *FileStore) RemoveRules(ctx context.Context, ownerID string, list []rules.Rule) error {
	if len(list) == 0 {
		return nil
	}
	return s.update(ctx, func(doc *document) error {
		i := doc.index(ownerID)
		if i < 0 {
			return &host.ModNotFoundError{ID: ownerID}
		}
		doc.Mods[i].Rules = slices.DeleteFunc(doc.Mods[i].Rules, func(stored rules.Rule) bool {
			return slices.ContainsFunc(list, func(r rules.Rule) bool { return rules.Equal(stored, r) })
		})
		return nil
	})
}

// AddRules appends list to ownerID's rules, skipping rules already stored.
func (s *FileStore) AddRules(ctx context.Context, ownerID string, list []rules.Rule) error {
	if len(list) == 0 {
		return nil
	}
	return s.update(ctx, func(doc *document) error {
		i := doc.index(ownerID)
		if i < 0 {
			return &host.ModNotFoundError{ID: ownerID}
		}
		for _, r := range list {
			if slices.ContainsFunc(doc.Mods[i].Rules, func(stored rules.Rule) bool { return rules.Equal(stored, r) }) {
				continue
			}
			doc.Mods[i].Rules = append(doc.Mods[i].Rules, r)
		}
		return nil
	})
}

// update applies fn to the current document and saves the result.
func (s *FileStore) update(ctx context.Context, fn func(*document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

func (s *FileStore) load(ctx context.Context) (*document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &document{Format: formatVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", s.path, err)
	}
	if doc.Format > formatVersion {
		return nil, fmt.Errorf("%w: %s has format %d, newest known is %d", ErrUnsupportedFormat, s.path, doc.Format, formatVersion)
	}
	return &doc, nil
}

func (s *FileStore) save(doc *document) error {
	doc.Format = formatVersion

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := writeFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	s.logger.Debug("state saved", "path", s.path, "mods", len(doc.Mods))
	return nil
}

func (d *document) index(id string) int {
	return slices.IndexFunc(d.Mods, func(rec modRecord) bool { return rec.ID == id })
}

func recordFor(mod host.InstalledMod) modRecord {
	rec := modRecord{
		ID:          mod.ID,
		Name:        mod.Name,
		Enabled:     mod.Enabled,
		InstalledAt: mod.InstalledAt,
		Folders:     slices.Clone(mod.Folders),
		Rules:       slices.Clone(mod.Rules),
	}
	for _, m := range mod.Manifests {
		rec.Manifests = append(rec.Manifests, m.ToRaw())
	}
	return rec
}

func (rec modRecord) toMod() host.InstalledMod {
	mod := host.InstalledMod{
		ID:          rec.ID,
		Name:        rec.Name,
		Enabled:     rec.Enabled,
		InstalledAt: rec.InstalledAt,
		Folders:     rec.Folders,
		Rules:       rec.Rules,
	}
	for _, raw := range rec.Manifests {
		mod.Manifests = append(mod.Manifests, manifest.Normalize(raw))
	}
	return mod
}
