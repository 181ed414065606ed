// SPDX-License-Identifier: MPL-2.0

// Package catalog is a client for the remote mod catalog web API.
//
// The catalog maps mod identifiers (and the update keys authors put in their
// manifests) to metadata: display name, download pages and suggested updates.
// A query is one batched POST; there is no retry. Failures are returned as
// *ServiceError and callers decide how to degrade:
//   - client.go: request building and the single batched query
//   - types.go: wire and result types
//   - updates.go: update checks over installed manifests
package catalog
