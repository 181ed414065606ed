// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions; Issue holds longer markdown guides, rendered with glamour, for the
// failures users hit most: game not found, catalog unreachable, incomplete
// installer archives and missing dependencies.
package issue
