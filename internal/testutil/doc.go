// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that build mods folders and
// archives on disk. Each helper fails the test immediately on error.
package testutil
