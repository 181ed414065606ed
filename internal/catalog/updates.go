// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"

	"github.com/valleymod/valleymod/pkg/manifest"
)

// Update is a newer release suggested for an installed manifest.
type Update struct {
	UniqueID         string
	Name             string
	InstalledVersion string
	Suggested        Release
}

// CheckUpdates asks the catalog for newer releases of the given manifests.
//
// Update checks are advisory: a failed query is logged and reported as "no
// updates" rather than returned, so callers never have to handle it. Manifests
// without an identifier are skipped.
func (c *Client) CheckUpdates(ctx context.Context, manifests []manifest.Manifest, gameVersion string) []Update {
	identities := make([]Identity, 0, len(manifests))
	byID := make(map[string]manifest.Manifest, len(manifests))
	for _, m := range manifests {
		if !m.HasID() {
			continue
		}
		key := manifest.FoldID(m.UniqueID)
		if _, dup := byID[key]; dup {
			continue
		}
		byID[key] = m
		identities = append(identities, Identity{
			ID:               m.UniqueID,
			InstalledVersion: m.Version,
			UpdateKeys:       m.UpdateKeys,
		})
	}

	results, err := c.Query(ctx, identities, gameVersion, false)
	if err != nil {
		c.logger.Warn("update check failed", "err", err)
		return nil
	}

	var updates []Update
	for _, id := range identities {
		r, ok := FindResult(results, id.ID)
		if !ok {
			continue
		}
		for _, e := range r.Errors {
			c.logger.Debug("catalog reported a problem", "mod", id.ID, "error", e)
		}
		if r.SuggestedUpdate == nil || r.SuggestedUpdate.Version == "" {
			continue
		}
		m := byID[manifest.FoldID(id.ID)]
		updates = append(updates, Update{
			UniqueID:         m.UniqueID,
			Name:             m.Name,
			InstalledVersion: m.Version,
			Suggested:        *r.SuggestedUpdate,
		})
	}
	return updates
}
