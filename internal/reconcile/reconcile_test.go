// SPDX-License-Identifier: MPL-2.0

package reconcile

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/valleymod/valleymod/internal/host"
	"github.com/valleymod/valleymod/internal/resolve"
	"github.com/valleymod/valleymod/internal/rules"
	"github.com/valleymod/valleymod/pkg/manifest"
)

type (
	// memStore is an in-memory Store that records every mutation.
	memStore struct {
		mods      host.InstalledMods
		mutations []mutation
		removeErr error
	}

	mutation struct {
		op    string
		owner string
		count int
	}
)

func (s *memStore) InstalledMods(context.Context) (host.InstalledMods, error) {
	out := make(host.InstalledMods, len(s.mods))
	for i, m := range s.mods {
		m.Rules = slices.Clone(m.Rules)
		out[i] = m
	}
	return out, nil
}

func (s *memStore) Mod(_ context.Context, id string) (host.InstalledMod, error) {
	m, ok := s.mods.Get(id)
	if !ok {
		return host.InstalledMod{}, &host.ModNotFoundError{ID: id}
	}
	m.Rules = slices.Clone(m.Rules)
	return m, nil
}

func (s *memStore) RemoveRules(_ context.Context, ownerID string, list []rules.Rule) error {
	s.mutations = append(s.mutations, mutation{"remove", ownerID, len(list)})
	if s.removeErr != nil {
		return s.removeErr
	}
	i := slices.IndexFunc(s.mods, func(m host.InstalledMod) bool { return m.ID == ownerID })
	s.mods[i].Rules = slices.DeleteFunc(s.mods[i].Rules, func(stored rules.Rule) bool {
		return slices.ContainsFunc(list, func(r rules.Rule) bool { return rules.Equal(stored, r) })
	})
	return nil
}

func (s *memStore) AddRules(_ context.Context, ownerID string, list []rules.Rule) error {
	s.mutations = append(s.mutations, mutation{"add", ownerID, len(list)})
	i := slices.IndexFunc(s.mods, func(m host.InstalledMod) bool { return m.ID == ownerID })
	s.mods[i].Rules = append(s.mods[i].Rules, list...)
	return nil
}

func fixture() *memStore {
	return &memStore{mods: host.InstalledMods{
		{
			ID:      "mod-a",
			Enabled: true,
			Manifests: []manifest.Manifest{{
				UniqueID: "A",
				Dependencies: []manifest.Dependency{
					{UniqueID: "B", IsRequired: true},
					{UniqueID: "Missing.Mod", MinimumVersion: "1.0"},
				},
			}},
		},
		{
			ID:        "mod-b",
			Enabled:   true,
			Manifests: []manifest.Manifest{{UniqueID: "B", Version: "1.0.0"}},
		},
	}}
}

func newReconciler(s *memStore) *Reconciler {
	return New(resolve.NewResolver(nil, nil), s)
}

func TestOnModEnabled_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := fixture()
	r := newReconciler(s)

	first, err := r.OnModEnabled(ctx, "mod-a")
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	if first.Removed != 0 || first.Added != 2 || !first.Changed {
		t.Errorf("first run = %+v, want 0 removed, 2 added, changed", first)
	}
	if first.Rules[0].State != rules.StateLocal || first.Rules[0].Reference.ID != "mod-b" {
		t.Errorf("first rule = %+v", first.Rules[0])
	}
	if first.Rules[1].State != rules.StateUnresolved {
		t.Errorf("second rule = %+v", first.Rules[1])
	}

	for run := 2; run <= 3; run++ {
		res, err := r.OnModEnabled(ctx, "mod-a")
		if err != nil {
			t.Fatalf("run %d error = %v", run, err)
		}
		if res.Removed != 2 || res.Added != 2 {
			t.Errorf("run %d removed %d added %d, want 2 and 2", run, res.Removed, res.Added)
		}
		if res.Changed || res.Fingerprint != first.Fingerprint {
			t.Errorf("run %d changed the rule set: %+v", run, res)
		}
		if len(res.Rules) != 2 {
			t.Errorf("run %d left %d rules, want 2", run, len(res.Rules))
		}
	}
}

func TestOnModEnabled_RemovalsBeforeAdditions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := fixture()
	r := newReconciler(s)
	if _, err := r.OnModEnabled(ctx, "mod-a"); err != nil {
		t.Fatal(err)
	}
	s.mutations = nil

	if _, err := r.OnModEnabled(ctx, "mod-a"); err != nil {
		t.Fatal(err)
	}
	want := []mutation{{"remove", "mod-a", 2}, {"add", "mod-a", 2}}
	if !slices.Equal(s.mutations, want) {
		t.Errorf("mutations = %+v, want %+v", s.mutations, want)
	}
}

func TestOnModEnabled_SupersedesStaleRule(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := fixture()
	stale := rules.NewUnresolved(manifest.Dependency{UniqueID: "b", IsRequired: true})
	unrelated := rules.NewUnresolved(manifest.Dependency{UniqueID: "Old.Dependency"})
	s.mods[0].Rules = []rules.Rule{stale, unrelated}

	res, err := newReconciler(s).OnModEnabled(ctx, "mod-a")
	if err != nil {
		t.Fatal(err)
	}
	if res.Removed != 1 {
		t.Errorf("removed %d, want the stale rule only", res.Removed)
	}
	if len(res.Rules) != 3 {
		t.Fatalf("rules = %+v", res.Rules)
	}
	if !rules.Equal(res.Rules[0], unrelated) {
		t.Errorf("undeclared rule should be kept first, got %+v", res.Rules[0])
	}
	for _, rule := range res.Rules {
		if rules.Equal(rule, stale) {
			t.Error("stale rule survived")
		}
	}
}

func TestOnModEnabled_NoManifestsIsNoop(t *testing.T) {
	t.Parallel()

	s := &memStore{mods: host.InstalledMods{{ID: "bare", Enabled: true}}}
	res, err := newReconciler(s).OnModEnabled(context.Background(), "bare")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed || len(s.mutations) != 0 {
		t.Errorf("result = %+v, mutations = %+v, want no-op", res, s.mutations)
	}
}

func TestOnModEnabled_UnknownMod(t *testing.T) {
	t.Parallel()

	_, err := newReconciler(fixture()).OnModEnabled(context.Background(), "nope")
	if !errors.Is(err, host.ErrModNotFound) {
		t.Errorf("error = %v, want ErrModNotFound", err)
	}
}

func TestOnModEnabled_RemovalFailureSkipsAdditions(t *testing.T) {
	t.Parallel()

	s := fixture()
	s.removeErr = errors.New("disk full")
	_, err := newReconciler(s).OnModEnabled(context.Background(), "mod-a")
	if !errors.Is(err, s.removeErr) {
		t.Fatalf("error = %v, want removal failure", err)
	}
	for _, m := range s.mutations {
		if m.op == "add" {
			t.Error("additions applied after a failed removal")
		}
	}
}

func TestPlan_SkipsSelfAndDuplicates(t *testing.T) {
	t.Parallel()

	owner := host.InstalledMod{
		ID: "bundle",
		Manifests: []manifest.Manifest{
			{UniqueID: "Framework", Dependencies: []manifest.Dependency{{UniqueID: "Shared", IsRequired: true}}},
			{
				UniqueID:       "Pack",
				ContentPackFor: &manifest.Dependency{UniqueID: "Framework"},
				Dependencies:   []manifest.Dependency{{UniqueID: "Shared", IsRequired: true}},
			},
		},
	}
	installed := host.InstalledMods{owner}

	batch := newReconciler(&memStore{}).Plan(context.Background(), owner, installed)
	if len(batch.Add) != 1 || batch.Add[0].Target() != "Shared" {
		t.Errorf("Add = %+v, want a single Shared rule", batch.Add)
	}
	if len(batch.Remove) != 0 {
		t.Errorf("Remove = %+v, want none", batch.Remove)
	}
}

func TestReconcileAll_SkipsDisabled(t *testing.T) {
	t.Parallel()

	s := fixture()
	s.mods[0].Enabled = false
	results, err := newReconciler(s).ReconcileAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].OwnerID != "mod-b" {
		t.Errorf("results = %+v, want only mod-b", results)
	}
	if len(s.mutations) != 0 {
		t.Errorf("mod-b has no dependencies, got mutations %+v", s.mutations)
	}
}
