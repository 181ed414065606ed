// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/valleymod/valleymod/internal/host"
)

// Rescan re-reads the manifests of every installed mod owning one of folders
// (names inside the mods directory) and stores the result. It returns the
// updated records in installation order. Folders no installed mod owns are
// skipped.
func (i *Installer) Rescan(ctx context.Context, folders []string) ([]host.InstalledMod, error) {
	installed, err := i.store.InstalledMods(ctx)
	if err != nil {
		return nil, err
	}

	var updated []host.InstalledMod
	for _, mod := range installed {
		if !ownsAny(mod, folders) {
			continue
		}
		files, err := i.listFolders(mod.Folders)
		if err != nil {
			return updated, err
		}

		mod.Manifests = nil
		if len(files) > 0 {
			plan, err := PlanMod(ctx, i.modsDir, files, i.logger)
			switch {
			case err == nil:
				mod.Manifests = plan.Manifests
			case ctx.Err() != nil:
				return updated, ctx.Err()
			default:
				i.logger.Warn("mod folders hold no readable manifest", "mod", mod.ID, "err", err)
			}
		}
		if err := i.store.PutMod(ctx, mod); err != nil {
			return updated, err
		}
		i.logger.Debug("mod rescanned", "mod", mod.ID, "manifests", len(mod.Manifests))
		updated = append(updated, mod)
	}

	for _, folder := range folders {
		if !slices.ContainsFunc(installed, func(m host.InstalledMod) bool { return ownsAny(m, []string{folder}) }) {
			i.logger.Debug("folder not managed, ignoring", "folder", folder)
		}
	}
	return updated, nil
}

// listFolders returns slash-separated paths, relative to the mods directory,
// of every file below folders. Missing folders contribute nothing.
func (i *Installer) listFolders(folders []string) ([]string, error) {
	var files []string
	for _, folder := range folders {
		root := filepath.Join(i.modsDir, folder)
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(i.modsDir, p)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("listing %s: %w", folder, err)
		}
	}
	return files, nil
}

func ownsAny(mod host.InstalledMod, folders []string) bool {
	for _, f := range folders {
		if slices.ContainsFunc(mod.Folders, func(owned string) bool { return strings.EqualFold(owned, f) }) {
			return true
		}
	}
	return false
}
