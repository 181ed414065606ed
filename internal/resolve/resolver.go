// SPDX-License-Identifier: MPL-2.0

// Package resolve turns a manifest's declared dependencies into dependency rules.
//
// Each distinct dependency becomes exactly one rule: local when an installed mod
// bundles a compatible manifest, remote when the catalog knows the mod, and
// unresolved otherwise. Resolution never fails; catalog problems degrade to
// unresolved rules.
package resolve

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/valleymod/valleymod/internal/catalog"
	"github.com/valleymod/valleymod/internal/host"
	"github.com/valleymod/valleymod/internal/rules"
	"github.com/valleymod/valleymod/pkg/manifest"
)

type (
	// Catalog looks up mods that are not installed.
	Catalog interface {
		Query(ctx context.Context, identities []catalog.Identity, gameVersion string, includeExtendedMetadata bool) ([]catalog.Result, error)
	}

	// GameVersionSource reports the installed game version.
	GameVersionSource interface {
		GameVersion(ctx context.Context) (string, error)
	}

	// Resolver computes dependency rules for one owning manifest at a time.
	// It holds no per-call state and may be shared.
	Resolver struct {
		catalog   Catalog
		versions  GameVersionSource
		searchURL string
		logger    *log.Logger
	}

	// Option configures a Resolver.
	Option func(*Resolver)

	// Summary counts rules per resolution state.
	Summary struct {
		Local      int
		Remote     int
		Unresolved int

		// MissingRequired counts required dependencies that are not installed.
		MissingRequired int
	}
)

// WithLogger sets the resolver's logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSearchURL sets the download hint used for catalog entries that have no
// download page of their own.
func WithSearchURL(url string) Option {
	return func(r *Resolver) {
		if url != "" {
			r.searchURL = url
		}
	}
}

// NewResolver creates a Resolver. A nil catalog or version source disables
// remote resolution.
func NewResolver(c Catalog, versions GameVersionSource, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:   c,
		versions:  versions,
		searchURL: catalog.DefaultSearchURL,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns one rule per distinct dependency of owner, in declaration
// order. The content pack target, if any, counts as a required dependency.
// Dependencies not satisfied by installed are looked up in a single catalog
// query.
func (r *Resolver) Resolve(ctx context.Context, owner manifest.Manifest, installed host.InstalledMods) []rules.Rule {
	deps := owner.DependencyList(true)
	if len(deps) == 0 {
		return nil
	}

	out := make([]rules.Rule, len(deps))
	var pending []int
	for i, dep := range deps {
		if mod, ok := matchLocal(dep, installed); ok {
			r.logger.Debug("dependency installed", "owner", owner.UniqueID, "dependency", dep.UniqueID, "mod", mod.ID)
			out[i] = rules.NewLocal(dep, mod.ID)
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		return out
	}

	results, err := r.lookup(ctx, deps, pending)
	if err != nil {
		r.logger.Warn("dependency lookup failed, recording unresolved rules",
			"owner", owner.UniqueID, "dependencies", len(pending), "err", err)
	}
	for _, i := range pending {
		out[i] = r.remoteRule(deps[i], results)
	}
	return out
}

// lookup queries the catalog for the pending dependencies.
func (r *Resolver) lookup(ctx context.Context, deps []manifest.Dependency, pending []int) ([]catalog.Result, error) {
	if r.catalog == nil {
		return nil, nil
	}

	gameVersion := ""
	if r.versions != nil {
		v, err := r.versions.GameVersion(ctx)
		if err != nil {
			return nil, err
		}
		gameVersion = v
	}
	if gameVersion == "" {
		return nil, catalog.ErrGameVersionUnavailable
	}

	identities := make([]catalog.Identity, len(pending))
	for n, i := range pending {
		identities[n] = catalog.Identity{ID: deps[i].UniqueID}
	}
	return r.catalog.Query(ctx, identities, gameVersion, true)
}

// remoteRule builds the rule for a dependency that is not installed. A result
// without metadata is how the catalog answers for ids it does not know, so it
// stays unresolved.
func (r *Resolver) remoteRule(dep manifest.Dependency, results []catalog.Result) rules.Rule {
	res, ok := catalog.FindResult(results, dep.UniqueID)
	if !ok || res.Metadata == nil {
		return rules.NewUnresolved(dep)
	}

	url := res.Metadata.DownloadURL()
	if url == "" {
		url = r.searchURL
	}
	name := res.Metadata.Name
	if name == "" {
		name = dep.UniqueID
	}
	return rules.NewRemote(dep, res.Metadata.CatalogID(dep.UniqueID), name, url)
}

// matchLocal returns the first installed mod, in installation order, that
// bundles a manifest for dep with a compatible version.
func matchLocal(dep manifest.Dependency, installed host.InstalledMods) (host.InstalledMod, bool) {
	for _, p := range installed.Providers(dep.UniqueID) {
		if dep.MinimumVersion == "" || manifest.SatisfiesMinimum(p.Manifest.Version, dep.MinimumVersion) {
			return p.Mod, true
		}
	}
	return host.InstalledMod{}, false
}

// Summarize counts rules per state.
func Summarize(list []rules.Rule) Summary {
	var s Summary
	for _, rule := range list {
		switch rule.State {
		case rules.StateLocal:
			s.Local++
		case rules.StateRemote:
			s.Remote++
		case rules.StateUnresolved:
			s.Unresolved++
		}
		if rule.Kind == rules.KindRequires && rule.State != rules.StateLocal {
			s.MissingRequired++
		}
	}
	return s
}

// Missing reports whether any dependency is not installed.
func (s Summary) Missing() bool {
	return s.Remote+s.Unresolved > 0
}
