// SPDX-License-Identifier: MPL-2.0

// Package host defines the records and contracts shared with the mod manager's
// state: installed mods, their bundled manifests, and their dependency rules.
package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valleymod/valleymod/internal/rules"
	"github.com/valleymod/valleymod/pkg/manifest"
)

// ErrModNotFound is returned when a host id does not name an installed mod.
var ErrModNotFound = errors.New("mod not found")

type (
	// InstalledMod is a mod package known to the host.
	InstalledMod struct {
		// ID is assigned by the host and is unrelated to manifest identifiers.
		ID string
		// Name is a display name, usually the first manifest's name.
		Name string
		// Enabled reports whether the mod is active.
		Enabled bool
		// Manifests lists the logical mods bundled in the package, in archive order.
		Manifests []manifest.Manifest
		// Folders lists the top-level folders the package owns in the mods directory.
		Folders []string
		// Rules are the dependency rules last stored for this mod.
		Rules []rules.Rule
		// InstalledAt records when the package was installed.
		InstalledAt time.Time
	}

	// InstalledMods is the ordered set of installed mods. Order is installation
	// order and decides which of several candidates satisfies a dependency first.
	InstalledMods []InstalledMod

	// ModNotFoundError names the missing host id.
	ModNotFoundError struct {
		ID string
	}

	// ModSource provides read access to the installed mods.
	ModSource interface {
		InstalledMods(ctx context.Context) (InstalledMods, error)
	}

	// RuleStore applies batched rule mutations for one owning mod. Each call is
	// applied atomically; callers order removals before additions.
	RuleStore interface {
		RemoveRules(ctx context.Context, ownerID string, list []rules.Rule) error
		AddRules(ctx context.Context, ownerID string, list []rules.Rule) error
	}

	// Store is the complete host state contract.
	Store interface {
		ModSource
		RuleStore
		Mod(ctx context.Context, id string) (InstalledMod, error)
		PutMod(ctx context.Context, mod InstalledMod) error
		SetEnabled(ctx context.Context, id string, enabled bool) error
		RemoveMod(ctx context.Context, id string) error
	}
)

// Error implements the error interface.
func (e *ModNotFoundError) Error() string {
	return fmt.Sprintf("mod %q not found", e.ID)
}

// Unwrap returns ErrModNotFound for errors.Is.
func (e *ModNotFoundError) Unwrap() error { return ErrModNotFound }

// Manifest returns the bundled manifest with the given identifier.
func (m InstalledMod) Manifest(uniqueID string) (manifest.Manifest, bool) {
	for _, mf := range m.Manifests {
		if mf.HasID() && manifest.SameID(mf.UniqueID, uniqueID) {
			return mf, true
		}
	}
	return manifest.Manifest{}, false
}

// Provides reports whether any bundled manifest declares uniqueID.
func (m InstalledMod) Provides(uniqueID string) bool {
	_, ok := m.Manifest(uniqueID)
	return ok
}

// Get returns the installed mod with host id id.
func (s InstalledMods) Get(id string) (InstalledMod, bool) {
	for _, m := range s {
		if m.ID == id {
			return m, true
		}
	}
	return InstalledMod{}, false
}

// Providers returns every installed mod bundling uniqueID together with the
// matching manifest, in installation order.
func (s InstalledMods) Providers(uniqueID string) []Provider {
	var out []Provider
	for _, m := range s {
		for _, mf := range m.Manifests {
			if mf.HasID() && manifest.SameID(mf.UniqueID, uniqueID) {
				out = append(out, Provider{Mod: m, Manifest: mf})
			}
		}
	}
	return out
}

// Provider pairs an installed mod with one of its bundled manifests.
type Provider struct {
	Mod      InstalledMod
	Manifest manifest.Manifest
}
