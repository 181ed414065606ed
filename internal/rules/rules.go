// SPDX-License-Identifier: MPL-2.0

// Package rules defines the dependency rule records stored against installed mods.
//
// A rule is a directed edge from the mod owning it to a dependency target, in one of
// three resolution states: resolved to an installed mod, identified in the remote
// catalog, or unresolved.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/valleymod/valleymod/pkg/manifest"
)

const (
	// KindRequires marks a dependency the owner cannot work without.
	KindRequires Kind = "requires"
	// KindRecommends marks an optional dependency.
	KindRecommends Kind = "recommends"

	// StateLocal rules reference an installed mod by its host id.
	StateLocal State = "local"
	// StateRemote rules carry a download hint from the catalog.
	StateRemote State = "remote"
	// StateUnresolved rules carry only the declared identifier and version.
	StateUnresolved State = "unresolved"

	// RepositoryCatalog names the remote mod catalog in repository hints.
	RepositoryCatalog = "catalog"

	// AnyVersion is the version match used when no minimum version is declared.
	AnyVersion = "*"
)

type (
	// Kind is the strength of a dependency rule.
	Kind string

	// State is how far a rule's target could be resolved.
	State string

	// Rule is one dependency edge owned by an installed mod.
	Rule struct {
		Kind      Kind      `json:"type" toml:"type"`
		State     State     `json:"state" toml:"state"`
		Reference Reference `json:"reference" toml:"reference"`
		Extra     *Extra    `json:"extra,omitempty" toml:"extra,omitempty"`
	}

	// Reference identifies the rule's target.
	Reference struct {
		// ID is the host id of the installed target (local rules only).
		ID string `json:"id,omitempty" toml:"id,omitempty"`
		// FileExpression is the declared dependency identifier. Every rule carries it,
		// which is what lets a later reconciliation find and replace the rule.
		FileExpression string `json:"fileExpression" toml:"file_expression"`
		// VersionMatch is "<minimum>^" or "*".
		VersionMatch string `json:"versionMatch" toml:"version_match"`
		// Repo points into the remote catalog (remote rules only).
		Repo *RepoHint `json:"repo,omitempty" toml:"repo,omitempty"`
	}

	// RepoHint describes where a missing dependency can be obtained.
	RepoHint struct {
		Repository string `json:"repository" toml:"repository"`
		CatalogID  string `json:"catalogId" toml:"catalog_id"`
		Name       string `json:"name,omitempty" toml:"name,omitempty"`
		URL        string `json:"url,omitempty" toml:"url,omitempty"`
	}

	// Extra holds presentation data for the host.
	Extra struct {
		Name              string `json:"name,omitempty" toml:"name,omitempty"`
		URL               string `json:"url,omitempty" toml:"url,omitempty"`
		OnlyIfFulfillable bool   `json:"onlyIfFulfillable,omitempty" toml:"only_if_fulfillable,omitempty"`
	}
)

// KindFor maps a declaration's IsRequired flag to a rule kind.
func KindFor(isRequired bool) Kind {
	if isRequired {
		return KindRequires
	}
	return KindRecommends
}

// VersionMatchFor returns the version constraint recorded for a minimum version.
func VersionMatchFor(minimumVersion string) string {
	if minimumVersion == "" {
		return AnyVersion
	}
	return minimumVersion + "^"
}

// NewLocal returns a rule resolved to the installed mod with host id modID.
func NewLocal(dep manifest.Dependency, modID string) Rule {
	return Rule{
		Kind:  KindFor(dep.IsRequired),
		State: StateLocal,
		Reference: Reference{
			ID:             modID,
			FileExpression: dep.UniqueID,
			VersionMatch:   VersionMatchFor(dep.MinimumVersion),
		},
	}
}

// NewRemote returns a rule pointing at a catalog entry.
func NewRemote(dep manifest.Dependency, catalogID, name, url string) Rule {
	return Rule{
		Kind:  KindFor(dep.IsRequired),
		State: StateRemote,
		Reference: Reference{
			FileExpression: dep.UniqueID,
			VersionMatch:   VersionMatchFor(dep.MinimumVersion),
			Repo: &RepoHint{
				Repository: RepositoryCatalog,
				CatalogID:  catalogID,
				Name:       name,
				URL:        url,
			},
		},
		Extra: &Extra{
			Name:              name,
			URL:               url,
			OnlyIfFulfillable: !dep.IsRequired,
		},
	}
}

// NewUnresolved returns a rule carrying only the declaration.
func NewUnresolved(dep manifest.Dependency) Rule {
	return Rule{
		Kind:  KindFor(dep.IsRequired),
		State: StateUnresolved,
		Reference: Reference{
			FileExpression: dep.UniqueID,
			VersionMatch:   VersionMatchFor(dep.MinimumVersion),
		},
	}
}

// Target returns the identifier a rule was created for.
func (r Rule) Target() string {
	return r.Reference.FileExpression
}

// DownloadURL returns the download hint of a remote rule, or "".
func (r Rule) DownloadURL() string {
	if r.Reference.Repo != nil && r.Reference.Repo.URL != "" {
		return r.Reference.Repo.URL
	}
	if r.Extra != nil {
		return r.Extra.URL
	}
	return ""
}

// Key returns the canonical JSON encoding of the rule. Two rules are the same
// rule exactly when their keys are equal.
func (r Rule) Key() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding rule: %w", err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("canonicalizing rule: %w", err)
	}
	return string(canonical), nil
}

// Equal reports whether two rules have the same canonical encoding.
func Equal(a, b Rule) bool {
	ka, errA := a.Key()
	kb, errB := b.Key()
	return errA == nil && errB == nil && ka == kb
}

// Fingerprint hashes a rule list in order using RFC 8785 canonical JSON, so that
// two rule sets can be compared byte for byte.
func Fingerprint(list []Rule) (string, error) {
	if list == nil {
		list = []Rule{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encoding rules: %w", err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("canonicalizing rules: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
