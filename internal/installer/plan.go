// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/valleymod/valleymod/internal/host"
	"github.com/valleymod/valleymod/internal/issue"
	"github.com/valleymod/valleymod/pkg/manifest"
	"github.com/valleymod/valleymod/pkg/platform"
)

// maxConcurrentManifestReads bounds parallel manifest parsing in PlanMod.
const maxConcurrentManifestReads = 8

var (
	// ErrPayloadMissing is returned when a mod loader installer archive lacks
	// the payload for the current platform.
	ErrPayloadMissing = errors.New("installer payload missing")

	// ErrFolderConflict is returned when a mod folder belongs to another mod.
	ErrFolderConflict = errors.New("mod folder owned by another mod")
)

type (
	// Instruction copies one archive file to a destination relative to the
	// target directory of the plan.
	Instruction struct {
		Source      string
		Destination string
	}

	// SMAPIPlan installs the mod loader.
	SMAPIPlan struct {
		// Payload is the archive path of the platform payload.
		Payload string
	}

	// Plan installs a mod archive into the mods directory.
	Plan struct {
		Instructions []Instruction
		// Manifests are the bundled manifests in folder order. Malformed
		// manifests appear as empty manifests.
		Manifests []manifest.Manifest
		// BundledFolders lists the top-level mods-directory folders the archive
		// installs, one per mod root.
		BundledFolders []string
		// Malformed lists manifest paths that could not be parsed.
		Malformed []string
	}

	// FolderConflict names a folder and the mod that already owns it.
	FolderConflict struct {
		Folder  string
		OwnerID string
	}

	// FolderConflictError lists every conflicting folder.
	FolderConflictError struct {
		Conflicts []FolderConflict
	}

	// modRoot is a directory holding a manifest.
	modRoot struct {
		dir          string
		manifestPath string
	}
)

// Error implements the error interface.
func (e *FolderConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = fmt.Sprintf("%s (owned by %s)", c.Folder, c.OwnerID)
	}
	return fmt.Sprintf("%s: %s", ErrFolderConflict, strings.Join(parts, ", "))
}

// Unwrap returns ErrFolderConflict for errors.Is.
func (e *FolderConflictError) Unwrap() error { return ErrFolderConflict }

// Owners returns the distinct owning mod ids in conflict order.
func (e *FolderConflictError) Owners() []string {
	var out []string
	for _, c := range e.Conflicts {
		if !slices.Contains(out, c.OwnerID) {
			out = append(out, c.OwnerID)
		}
	}
	return out
}

// PlanSMAPI locates the mod loader payload for goos. A missing payload is the
// one installation failure that cannot be degraded: the archive is unusable.
func PlanSMAPI(files []string, goos string) (SMAPIPlan, error) {
	want := path.Join("internal", platform.PayloadDir(goos), payloadFileName)
	for _, f := range files {
		if strings.EqualFold(f, want) || strings.HasSuffix(strings.ToLower(f), "/"+strings.ToLower(want)) {
			return SMAPIPlan{Payload: f}, nil
		}
	}
	return SMAPIPlan{}, issue.NewErrorContext().
		WithOperation("install SMAPI").
		WithResource(want).
		WithSuggestion("Download the SMAPI installer again; the archive is incomplete").
		WithIssue(issue.PayloadMissingId).
		Wrap(ErrPayloadMissing).
		BuildError()
}

// PlanMod reads every manifest below root and maps each mod folder into the
// mods directory. Manifests nested inside another mod folder belong to that
// folder and are not mods of their own. Unreadable manifests do not fail the
// plan; they are listed in Plan.Malformed.
func PlanMod(ctx context.Context, root string, files []string, logger *log.Logger) (Plan, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	roots := modRoots(files)
	if len(roots) == 0 {
		return Plan{}, fmt.Errorf("no %s in archive", manifest.FileName)
	}

	manifests := make([]manifest.Manifest, len(roots))
	malformed := make([]bool, len(roots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentManifestReads)
	for i, r := range roots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(r.manifestPath)))
			if err != nil {
				return fmt.Errorf("reading %s: %w", r.manifestPath, err)
			}
			m, err := manifest.Parse(data, manifest.WithSource(r.manifestPath), manifest.WithLogger(logger))
			if err != nil {
				logger.Warn("manifest unreadable, installing without dependency data", "manifest", r.manifestPath, "err", err)
				malformed[i] = true
			}
			manifests[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Plan{}, err
	}

	plan := Plan{Manifests: manifests}
	for i, r := range roots {
		if malformed[i] {
			plan.Malformed = append(plan.Malformed, r.manifestPath)
		}
		folder := folderName(r.dir, manifests[i])
		if slices.ContainsFunc(plan.BundledFolders, func(f string) bool { return strings.EqualFold(f, folder) }) {
			return Plan{}, fmt.Errorf("archive contains two mod folders named %q", folder)
		}
		plan.BundledFolders = append(plan.BundledFolders, folder)

		prefix := ""
		if r.dir != "." {
			prefix = r.dir + "/"
		}
		for _, f := range files {
			if !strings.HasPrefix(f, prefix) {
				continue
			}
			plan.Instructions = append(plan.Instructions, Instruction{
				Source:      f,
				Destination: path.Join(folder, strings.TrimPrefix(f, prefix)),
			})
		}
	}
	return plan, nil
}

// PlanRootFolder maps game content overrides onto the game directory.
func PlanRootFolder(files []string) []Instruction {
	var out []Instruction
	for _, f := range files {
		i := contentIndex(f)
		if i < 0 {
			continue
		}
		segments := strings.Split(f, "/")
		out = append(out, Instruction{Source: f, Destination: path.Join(segments[i:]...)})
	}
	return out
}

// ValidateOwnership reports folders of plan already owned by an installed mod
// other than selfID.
func ValidateOwnership(plan Plan, installed host.InstalledMods, selfID string) error {
	var conflicts []FolderConflict
	for _, folder := range plan.BundledFolders {
		for _, mod := range installed {
			if mod.ID == selfID {
				continue
			}
			if slices.ContainsFunc(mod.Folders, func(f string) bool { return strings.EqualFold(f, folder) }) {
				conflicts = append(conflicts, FolderConflict{Folder: folder, OwnerID: mod.ID})
			}
		}
	}
	if len(conflicts) == 0 {
		return nil
	}
	return &FolderConflictError{Conflicts: conflicts}
}

// modRoots returns the outermost directories holding a manifest, in listing
// order.
func modRoots(files []string) []modRoot {
	var all []modRoot
	for _, f := range files {
		if strings.EqualFold(path.Base(f), manifest.FileName) {
			all = append(all, modRoot{dir: path.Dir(f), manifestPath: f})
		}
	}
	// Shallow roots first so nested ones can be discarded.
	slices.SortStableFunc(all, func(a, b modRoot) int { return depth(a.dir) - depth(b.dir) })

	var roots []modRoot
	for _, r := range all {
		if slices.ContainsFunc(roots, func(outer modRoot) bool { return within(r.dir, outer.dir) }) {
			continue
		}
		roots = append(roots, r)
	}
	slices.SortStableFunc(roots, func(a, b modRoot) int { return strings.Compare(a.manifestPath, b.manifestPath) })
	return roots
}

// folderName is the mods-directory folder a mod root is installed as. Archives
// with the manifest at their root are named after the mod.
func folderName(dir string, m manifest.Manifest) string {
	if dir != "." {
		return path.Base(dir)
	}
	for _, candidate := range []string{m.Name, m.UniqueID} {
		if name := strings.TrimSpace(candidate); name != "" && platform.IsPortableFolderName(name) {
			return name
		}
	}
	return "UnnamedMod"
}

func depth(dir string) int {
	if dir == "." {
		return 0
	}
	return strings.Count(dir, "/") + 1
}

func within(dir, outer string) bool {
	return outer == "." || dir == outer || strings.HasPrefix(dir, outer+"/")
}
