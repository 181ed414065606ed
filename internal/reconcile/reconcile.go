// SPDX-License-Identifier: MPL-2.0

// Package reconcile re-derives an installed mod's dependency rules and replaces
// the stored ones.
//
// A reconciliation is two phases: Plan computes which stored rules are
// superseded and which rules are new, and Apply commits that as exactly two
// store mutations, all removals first and then all additions.
package reconcile

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/valleymod/valleymod/internal/host"
	"github.com/valleymod/valleymod/internal/rules"
	"github.com/valleymod/valleymod/pkg/manifest"
)

type (
	// Resolver computes the dependency rules of one manifest.
	Resolver interface {
		Resolve(ctx context.Context, owner manifest.Manifest, installed host.InstalledMods) []rules.Rule
	}

	// Store is the part of the host state the reconciler reads and writes.
	Store interface {
		host.ModSource
		host.RuleStore
		Mod(ctx context.Context, id string) (host.InstalledMod, error)
	}

	// Batch is a planned rule change for one owner.
	Batch struct {
		OwnerID string
		Remove  []rules.Rule
		Add     []rules.Rule
	}

	// Result reports what a reconciliation did.
	Result struct {
		OwnerID string
		Removed int
		Added   int
		// Rules is the owner's stored rule set afterwards.
		Rules []rules.Rule
		// Fingerprint identifies Rules; see rules.Fingerprint.
		Fingerprint string
		// Changed reports whether the stored rule set differs from before.
		Changed bool
	}

	// Reconciler keeps stored dependency rules in line with manifests.
	Reconciler struct {
		resolver Resolver
		store    Store
		logger   *log.Logger
	}

	// Option configures a Reconciler.
	Option func(*Reconciler)
)

// WithLogger sets the reconciler's logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Reconciler.
func New(resolver Resolver, store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		resolver: resolver,
		store:    store,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Empty reports whether the batch changes nothing.
func (b Batch) Empty() bool {
	return len(b.Remove) == 0 && len(b.Add) == 0
}

// Plan computes the rule changes for owner against the installed set.
//
// Every bundled manifest is resolved in order. Rules that point back at owner
// itself are dropped: a dependency bundled in the same package needs no rule.
// A stored rule is superseded when its file expression names the same mod as a
// newly computed rule. Stored rules for dependencies that are no longer
// declared are left alone.
func (r *Reconciler) Plan(ctx context.Context, owner host.InstalledMod, installed host.InstalledMods) Batch {
	batch := Batch{OwnerID: owner.ID}

	for _, m := range owner.Manifests {
		computed := r.resolver.Resolve(ctx, m, installed)
		if len(computed) == 0 {
			continue
		}
		for _, rule := range computed {
			if rule.State == rules.StateLocal && rule.Reference.ID == owner.ID {
				r.logger.Debug("dependency bundled with owner", "owner", owner.ID, "dependency", rule.Target())
				continue
			}
			if slices.ContainsFunc(batch.Add, func(added rules.Rule) bool { return rules.Equal(added, rule) }) {
				continue
			}
			batch.Add = append(batch.Add, rule)
		}
	}

	for _, stored := range owner.Rules {
		if slices.ContainsFunc(batch.Add, func(added rules.Rule) bool {
			return manifest.SameID(stored.Reference.FileExpression, added.Reference.FileExpression)
		}) {
			batch.Remove = append(batch.Remove, stored)
		}
	}
	return batch
}

// Apply commits batch: one removal mutation, then one addition mutation. When
// the removal fails nothing is added.
func (r *Reconciler) Apply(ctx context.Context, batch Batch) error {
	if err := r.store.RemoveRules(ctx, batch.OwnerID, batch.Remove); err != nil {
		return fmt.Errorf("removing superseded rules of %s: %w", batch.OwnerID, err)
	}
	if err := r.store.AddRules(ctx, batch.OwnerID, batch.Add); err != nil {
		return fmt.Errorf("adding rules of %s: %w", batch.OwnerID, err)
	}
	return nil
}

// OnModEnabled reconciles the rules of the mod with host id ownerID. It is a
// no-op for mods without bundled manifests. Resolution problems never surface
// here; only host state failures are returned.
func (r *Reconciler) OnModEnabled(ctx context.Context, ownerID string) (Result, error) {
	installed, err := r.store.InstalledMods(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading installed mods: %w", err)
	}
	owner, ok := installed.Get(ownerID)
	if !ok {
		return Result{}, &host.ModNotFoundError{ID: ownerID}
	}
	return r.reconcile(ctx, owner, installed)
}

// ReconcileAll reconciles every enabled mod in installation order. It stops at
// the first host state failure.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]Result, error) {
	installed, err := r.store.InstalledMods(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading installed mods: %w", err)
	}

	var results []Result
	for _, mod := range installed {
		if !mod.Enabled {
			continue
		}
		res, err := r.reconcile(ctx, mod, installed)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Reconciler) reconcile(ctx context.Context, owner host.InstalledMod, installed host.InstalledMods) (Result, error) {
	before, err := rules.Fingerprint(owner.Rules)
	if err != nil {
		return Result{}, err
	}
	res := Result{OwnerID: owner.ID, Rules: owner.Rules, Fingerprint: before}
	if len(owner.Manifests) == 0 {
		r.logger.Debug("no manifests to reconcile", "mod", owner.ID)
		return res, nil
	}

	batch := r.Plan(ctx, owner, installed)
	if batch.Empty() {
		return res, nil
	}
	if err := r.Apply(ctx, batch); err != nil {
		return Result{}, err
	}

	updated, err := r.store.Mod(ctx, owner.ID)
	if err != nil {
		return Result{}, fmt.Errorf("reloading %s: %w", owner.ID, err)
	}
	after, err := rules.Fingerprint(updated.Rules)
	if err != nil {
		return Result{}, err
	}

	res.Removed = len(batch.Remove)
	res.Added = len(batch.Add)
	res.Rules = updated.Rules
	res.Fingerprint = after
	res.Changed = after != before
	r.logger.Info("dependency rules reconciled", "mod", owner.ID, "removed", res.Removed, "added", res.Added, "changed", res.Changed)
	return res, nil
}
