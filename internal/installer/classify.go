// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/valleymod/valleymod/pkg/manifest"
)

// Kind is the category of an archive.
type Kind string

const (
	// KindSMAPI is the mod loader installer.
	KindSMAPI Kind = "smapi"
	// KindMod contains one or more mod folders with a manifest.
	KindMod Kind = "mod"
	// KindRootFolder overrides game content files.
	KindRootFolder Kind = "root-folder"
	// KindUnsupported is anything else.
	KindUnsupported Kind = "unsupported"
)

const (
	// payloadFileName is the per-platform payload of the mod loader installer.
	payloadFileName = "install.dat"

	// contentFolder is the game's content folder, overridden by root-folder archives.
	contentFolder = "Content"
)

// Classify decides how an archive is installed from its file listing
// (slash-separated paths relative to the archive root).
//
// The mod loader installer is recognized by its payload layout even when it
// also ships manifests. Archives with a manifest are mods; archives with a
// game content folder and no manifest replace game files.
func Classify(files []string) Kind {
	var hasManifest, hasContent bool
	for _, f := range files {
		lower := strings.ToLower(f)
		if ok, _ := doublestar.Match("**/internal/*/"+payloadFileName, lower); ok {
			return KindSMAPI
		}
		if strings.EqualFold(path.Base(f), manifest.FileName) {
			hasManifest = true
		}
		if contentIndex(f) >= 0 {
			hasContent = true
		}
	}
	switch {
	case hasManifest:
		return KindMod
	case hasContent:
		return KindRootFolder
	default:
		return KindUnsupported
	}
}

// contentIndex returns the index of the path segment naming the game content
// folder, or -1.
func contentIndex(file string) int {
	segments := strings.Split(file, "/")
	for i, s := range segments[:len(segments)-1] {
		if strings.EqualFold(s, contentFolder) {
			return i
		}
	}
	return -1
}
