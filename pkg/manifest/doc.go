// SPDX-License-Identifier: MPL-2.0

// Package manifest turns loosely-structured mod manifests into canonical records.
//
// Mod authors write manifest.json by hand, so key capitalization varies, comments and
// trailing commas are common, and versions are free-form strings. This package is the
// only place raw manifest data is handled:
//   - [Parse]: decode manifest.json bytes (BOM, comments and trailing commas tolerated)
//   - [Normalize]: build a [Manifest] from an already-decoded object with case-insensitive keys
//   - [Manifest.DependencyList]: the deduplicated dependency set used for resolution
//   - [SatisfiesMinimum]: the permissive coerce-then-caret version check
//
// Identifiers compare case-insensitively everywhere; use [SameID] or [FoldID] rather than
// strings.EqualFold so that every caller folds the same way.
package manifest
