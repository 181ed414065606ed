// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against an embedded schema.
//
// Decoding follows three steps: compile the schema, unify the user
// document with a schema definition, then validate and decode. Errors
// carry the file name and a JSON-style field path:
//
//	config.cue: catalog.requests_per_minute: invalid value -1 (out of bound >=0)
package cueutil
