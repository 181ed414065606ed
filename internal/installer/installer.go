// SPDX-License-Identifier: MPL-2.0

// Package installer classifies downloaded archives and installs them into the
// game folder: the mod loader itself, mod packages holding one or more mod
// folders, and game content overrides.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/valleymod/valleymod/internal/host"
	"github.com/valleymod/valleymod/internal/issue"
	"github.com/valleymod/valleymod/internal/store"
)

// ErrUnsupportedArchive is returned for archives Classify cannot place.
var ErrUnsupportedArchive = errors.New("unsupported archive")

type (
	// Installer installs archives for one game installation.
	Installer struct {
		store   host.Store
		gameDir string
		modsDir string
		goos    string
		logger  *log.Logger
	}

	// Option configures an Installer.
	Option func(*Installer)

	// Outcome describes a finished installation.
	Outcome struct {
		Kind Kind
		// Mod is the stored record for mod and root-folder archives.
		Mod host.InstalledMod
		// Replaced is true when the archive upgraded an installed mod.
		Replaced bool
		// Malformed lists manifests installed without dependency data.
		Malformed []string
	}
)

// WithLogger sets the installer's logger.
func WithLogger(logger *log.Logger) Option {
	return func(i *Installer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithGOOS overrides the platform whose mod loader payload is installed.
func WithGOOS(goos string) Option {
	return func(i *Installer) {
		if goos != "" {
			i.goos = goos
		}
	}
}

// New creates an Installer writing to gameDir and modsDir.
func New(s host.Store, gameDir, modsDir string, opts ...Option) *Installer {
	i := &Installer{
		store:   s,
		gameDir: gameDir,
		modsDir: modsDir,
		goos:    runtime.GOOS,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install extracts archivePath to a scratch directory, classifies it and
// installs it. Mod archives are recorded in the store, enabled; an archive
// whose folders all belong to one installed mod replaces that mod and keeps its
// id.
func (i *Installer) Install(ctx context.Context, archivePath string) (Outcome, error) {
	scratch, err := os.MkdirTemp("", "valleymod-install-*")
	if err != nil {
		return Outcome{}, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(scratch) }() // best-effort cleanup

	files, err := Extract(ctx, archivePath, scratch)
	if err != nil {
		return Outcome{}, issue.WrapWithContext(err, "extract archive", archivePath)
	}

	kind := Classify(files)
	i.logger.Debug("archive classified", "archive", archivePath, "kind", kind, "files", len(files))

	switch kind {
	case KindSMAPI:
		return i.installSMAPI(ctx, scratch, files)
	case KindMod:
		return i.installMod(ctx, archivePath, scratch, files)
	case KindRootFolder:
		return i.installRootFolder(ctx, archivePath, scratch, files)
	default:
		return Outcome{Kind: kind}, issue.NewErrorContext().
			WithOperation("install archive").
			WithResource(archivePath).
			WithIssue(issue.ArchiveUnsupportedId).
			Wrap(ErrUnsupportedArchive).
			BuildError()
	}
}

func (i *Installer) installSMAPI(ctx context.Context, scratch string, files []string) (Outcome, error) {
	plan, err := PlanSMAPI(files, i.goos)
	if err != nil {
		return Outcome{Kind: KindSMAPI}, err
	}
	// The payload is itself a zip of the loader files.
	if _, err := Extract(ctx, filepath.Join(scratch, filepath.FromSlash(plan.Payload)), i.gameDir); err != nil {
		return Outcome{Kind: KindSMAPI}, issue.WrapWithContext(err, "install SMAPI", i.gameDir)
	}
	i.logger.Info("SMAPI installed", "game", i.gameDir)
	return Outcome{Kind: KindSMAPI}, nil
}

func (i *Installer) installMod(ctx context.Context, archivePath, scratch string, files []string) (Outcome, error) {
	plan, err := PlanMod(ctx, scratch, files, i.logger)
	if err != nil {
		return Outcome{Kind: KindMod}, issue.WrapWithContext(err, "plan mod install", archivePath)
	}

	installed, err := i.store.InstalledMods(ctx)
	if err != nil {
		return Outcome{Kind: KindMod}, err
	}

	modID := ""
	replaced := false
	if err := ValidateOwnership(plan, installed, ""); err != nil {
		var conflict *FolderConflictError
		if !errors.As(err, &conflict) || len(conflict.Owners()) != 1 {
			return Outcome{Kind: KindMod}, i.conflictError(archivePath, err)
		}
		// Every conflicting folder belongs to the same mod: an upgrade.
		modID = conflict.Owners()[0]
		replaced = true
		old, _ := installed.Get(modID)
		for _, folder := range old.Folders {
			if err := os.RemoveAll(filepath.Join(i.modsDir, folder)); err != nil {
				return Outcome{Kind: KindMod}, fmt.Errorf("removing previous version of %s: %w", folder, err)
			}
		}
	}

	for _, in := range plan.Instructions {
		src := filepath.Join(scratch, filepath.FromSlash(in.Source))
		dst := filepath.Join(i.modsDir, filepath.FromSlash(in.Destination))
		if err := copyFile(src, dst); err != nil {
			return Outcome{Kind: KindMod}, fmt.Errorf("installing %s: %w", in.Destination, err)
		}
	}

	if modID == "" {
		modID = store.NewModID()
	}
	mod := host.InstalledMod{
		ID:        modID,
		Name:      displayName(plan, archivePath),
		Enabled:   true,
		Manifests: plan.Manifests,
		Folders:   plan.BundledFolders,
	}
	if replaced {
		old, _ := installed.Get(modID)
		mod.Rules = old.Rules
		mod.Enabled = old.Enabled
	}
	if err := i.store.PutMod(ctx, mod); err != nil {
		return Outcome{Kind: KindMod}, err
	}

	i.logger.Info("mod installed", "mod", mod.ID, "name", mod.Name, "folders", len(mod.Folders), "replaced", replaced)
	return Outcome{Kind: KindMod, Mod: mod, Replaced: replaced, Malformed: plan.Malformed}, nil
}

func (i *Installer) installRootFolder(ctx context.Context, archivePath, scratch string, files []string) (Outcome, error) {
	for _, in := range PlanRootFolder(files) {
		src := filepath.Join(scratch, filepath.FromSlash(in.Source))
		dst := filepath.Join(i.gameDir, filepath.FromSlash(in.Destination))
		if err := copyFile(src, dst); err != nil {
			return Outcome{Kind: KindRootFolder}, fmt.Errorf("installing %s: %w", in.Destination, err)
		}
	}
	mod := host.InstalledMod{
		ID:      store.NewModID(),
		Name:    archiveName(archivePath),
		Enabled: true,
	}
	if err := i.store.PutMod(ctx, mod); err != nil {
		return Outcome{Kind: KindRootFolder}, err
	}
	return Outcome{Kind: KindRootFolder, Mod: mod}, nil
}

func (i *Installer) conflictError(archivePath string, err error) error {
	return issue.NewErrorContext().
		WithOperation("install mod").
		WithResource(archivePath).
		WithSuggestion("Uninstall the mods listed above, then retry").
		WithIssue(issue.FolderConflictId).
		Wrap(err).
		BuildError()
}

func displayName(plan Plan, archivePath string) string {
	for _, m := range plan.Manifests {
		if m.Name != "" {
			return m.Name
		}
	}
	return archiveName(archivePath)
}

func archiveName(archivePath string) string {
	base := filepath.Base(archivePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
