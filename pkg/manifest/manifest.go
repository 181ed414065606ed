// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"strings"

	"golang.org/x/text/cases"
)

// Canonical field names as written by the mod loader's own manifest format.
const (
	FieldName              = "Name"
	FieldAuthor            = "Author"
	FieldVersion           = "Version"
	FieldDescription       = "Description"
	FieldUniqueID          = "UniqueID"
	FieldEntryDLL          = "EntryDll"
	FieldMinimumAPIVersion = "MinimumApiVersion"
	FieldUpdateKeys        = "UpdateKeys"
	FieldDependencies      = "Dependencies"
	FieldContentPackFor    = "ContentPackFor"
	FieldMinimumVersion    = "MinimumVersion"
	FieldIsRequired        = "IsRequired"
)

type (
	// Dependency is one declared edge of the dependency graph.
	Dependency struct {
		// UniqueID identifies the target mod. Compared case-insensitively.
		UniqueID string `json:"UniqueID"`
		// MinimumVersion is the lowest acceptable version (optional).
		MinimumVersion string `json:"MinimumVersion,omitempty"`
		// IsRequired selects "requires" over "recommends".
		IsRequired bool `json:"IsRequired"`
	}

	// Manifest is the canonical record of one mod's manifest.json.
	Manifest struct {
		Name              string
		Author            string
		Version           string
		Description       string
		UniqueID          string
		EntryDLL          string
		MinimumAPIVersion string
		UpdateKeys        []string
		Dependencies      []Dependency
		// ContentPackFor names the mod this content pack extends. It is kept apart from
		// Dependencies; see DependencyList.
		ContentPackFor *Dependency
	}
)

// FoldID returns the case-folded form of a mod identifier, suitable as a map key.
func FoldID(id string) string {
	// cases.Caser keeps internal state, so one is created per call.
	return cases.Fold().String(strings.TrimSpace(id))
}

// SameID reports whether two mod identifiers refer to the same mod.
func SameID(a, b string) bool {
	return FoldID(a) == FoldID(b)
}

// HasID reports whether the manifest can take part in dependency matching.
// A manifest without an identifier can still depend on others but nothing can
// depend on it.
func (m Manifest) HasID() bool {
	return strings.TrimSpace(m.UniqueID) != ""
}

// IsContentPack reports whether the manifest extends another mod.
func (m Manifest) IsContentPack() bool {
	return m.ContentPackFor != nil && strings.TrimSpace(m.ContentPackFor.UniqueID) != ""
}

// DependencyList returns the working dependency set of the manifest.
//
// Entries with an empty UniqueID are dropped. When withContentPack is true and the
// manifest is a content pack, a required dependency on the extended mod is appended.
// Duplicates (compared case-insensitively) collapse to their first occurrence.
// The manifest itself is not modified.
func (m Manifest) DependencyList(withContentPack bool) []Dependency {
	candidates := make([]Dependency, 0, len(m.Dependencies)+1)
	candidates = append(candidates, m.Dependencies...)
	if withContentPack && m.IsContentPack() {
		candidates = append(candidates, Dependency{
			UniqueID:       m.ContentPackFor.UniqueID,
			MinimumVersion: m.ContentPackFor.MinimumVersion,
			IsRequired:     true,
		})
	}

	seen := make(map[string]struct{}, len(candidates))
	deps := make([]Dependency, 0, len(candidates))
	for _, dep := range candidates {
		dep.UniqueID = strings.TrimSpace(dep.UniqueID)
		if dep.UniqueID == "" {
			continue
		}
		key := FoldID(dep.UniqueID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deps = append(deps, dep)
	}
	return deps
}

// ToRaw returns the plain-data projection of the manifest using canonical key names.
// Empty fields are omitted. Normalize(m.ToRaw()) yields m again.
func (m Manifest) ToRaw() map[string]any {
	raw := make(map[string]any)
	putString := func(key, value string) {
		if value != "" {
			raw[key] = value
		}
	}
	putString(FieldName, m.Name)
	putString(FieldAuthor, m.Author)
	putString(FieldVersion, m.Version)
	putString(FieldDescription, m.Description)
	putString(FieldUniqueID, m.UniqueID)
	putString(FieldEntryDLL, m.EntryDLL)
	putString(FieldMinimumAPIVersion, m.MinimumAPIVersion)

	if len(m.UpdateKeys) > 0 {
		keys := make([]any, 0, len(m.UpdateKeys))
		for _, k := range m.UpdateKeys {
			keys = append(keys, k)
		}
		raw[FieldUpdateKeys] = keys
	}
	if len(m.Dependencies) > 0 {
		deps := make([]any, 0, len(m.Dependencies))
		for _, dep := range m.Dependencies {
			deps = append(deps, dep.toRaw())
		}
		raw[FieldDependencies] = deps
	}
	if m.ContentPackFor != nil {
		cp := map[string]any{FieldUniqueID: m.ContentPackFor.UniqueID}
		if m.ContentPackFor.MinimumVersion != "" {
			cp[FieldMinimumVersion] = m.ContentPackFor.MinimumVersion
		}
		raw[FieldContentPackFor] = cp
	}
	return raw
}

func (d Dependency) toRaw() map[string]any {
	raw := map[string]any{
		FieldUniqueID:   d.UniqueID,
		FieldIsRequired: d.IsRequired,
	}
	if d.MinimumVersion != "" {
		raw[FieldMinimumVersion] = d.MinimumVersion
	}
	return raw
}
