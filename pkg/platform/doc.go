// SPDX-License-Identifier: MPL-2.0

// Package platform maps Go operating system names onto the names used by the game,
// its mod loader and the mod catalog, and checks mod folder names that would not
// survive on every platform the game runs on.
package platform
