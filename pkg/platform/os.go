// SPDX-License-Identifier: MPL-2.0

package platform

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// Platform names reported to the mod catalog.
const (
	CatalogWindows = "Windows"
	CatalogLinux   = "Linux"
	CatalogMac     = "Mac"
)

// CatalogTag returns the platform name the mod catalog expects for goos.
// Every non-Windows, non-macOS system is reported as Linux.
func CatalogTag(goos string) string {
	switch goos {
	case Windows:
		return CatalogWindows
	case Darwin:
		return CatalogMac
	default:
		return CatalogLinux
	}
}

// PayloadDir returns the folder name of the mod loader installer payload for goos
// (the installer ships one payload per platform under "internal/<dir>/").
func PayloadDir(goos string) string {
	switch goos {
	case Windows:
		return "windows"
	case Darwin:
		return "macOS"
	default:
		return "linux"
	}
}
