// SPDX-License-Identifier: MPL-2.0

package catalog

type (
	// Identity is one mod to look up.
	Identity struct {
		ID               string   `json:"id"`
		InstalledVersion string   `json:"installedVersion,omitempty"`
		UpdateKeys       []string `json:"updateKeys,omitempty"`
	}

	// Release is a downloadable version of a mod.
	Release struct {
		Version string `json:"version"`
		URL     string `json:"url"`
	}

	// Metadata is the catalog's description of a mod. Only populated when extended
	// metadata was requested.
	Metadata struct {
		ID                   []string `json:"id"`
		Name                 string   `json:"name"`
		NexusID              *int     `json:"nexusID,omitempty"`
		ChucklefishID        *int     `json:"chucklefishID,omitempty"`
		CurseForgeID         *int     `json:"curseForgeID,omitempty"`
		ModDropID            *int     `json:"modDropID,omitempty"`
		GitHubRepo           string   `json:"gitHubRepo,omitempty"`
		CustomSourceURL      string   `json:"customSourceUrl,omitempty"`
		CustomURL            string   `json:"customUrl,omitempty"`
		Main                 *Release `json:"main,omitempty"`
		Optional             *Release `json:"optional,omitempty"`
		Unofficial           *Release `json:"unofficial,omitempty"`
		CompatibilityStatus  string   `json:"compatibilityStatus,omitempty"`
		CompatibilitySummary string   `json:"compatibilitySummary,omitempty"`
	}

	// Result is the catalog's answer for one identity.
	Result struct {
		ID              string    `json:"id"`
		SuggestedUpdate *Release  `json:"suggestedUpdate,omitempty"`
		Errors          []string  `json:"errors"`
		Metadata        *Metadata `json:"metadata,omitempty"`
	}

	// queryRequest is the JSON wire format of a batched query.
	queryRequest struct {
		Mods                    []Identity `json:"mods"`
		APIVersion              string     `json:"apiVersion"`
		GameVersion             string     `json:"gameVersion"`
		Platform                string     `json:"platform"`
		IncludeExtendedMetadata bool       `json:"includeExtendedMetadata,omitempty"`
	}
)

// DownloadURL returns the best download page for the mod, or "" when the
// metadata has none.
func (m *Metadata) DownloadURL() string {
	if m == nil {
		return ""
	}
	for _, r := range []*Release{m.Main, m.Optional, m.Unofficial} {
		if r != nil && r.URL != "" {
			return r.URL
		}
	}
	return m.CustomURL
}

// CatalogID returns the catalog's primary identifier for the mod, falling back to
// fallback when the metadata lists none.
func (m *Metadata) CatalogID(fallback string) string {
	if m != nil {
		for _, id := range m.ID {
			if id != "" {
				return id
			}
		}
	}
	return fallback
}
