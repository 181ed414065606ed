// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailscale/hujson"
)

// FileName is the manifest file every mod folder carries.
const FileName = "manifest.json"

// ErrMalformedManifest is the sentinel error wrapped by MalformedManifestError.
var ErrMalformedManifest = errors.New("malformed manifest")

// MalformedManifestError is returned when manifest content cannot be decoded.
type MalformedManifestError struct {
	Source string
	Cause  error
}

// Error implements the error interface.
func (e *MalformedManifestError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("malformed manifest: %v", e.Cause)
	}
	return fmt.Sprintf("malformed manifest %s: %v", e.Source, e.Cause)
}

// Unwrap exposes both ErrMalformedManifest and the decoding cause to errors.Is.
func (e *MalformedManifestError) Unwrap() []error { return []error{ErrMalformedManifest, e.Cause} }

// Parse decodes manifest.json content and normalizes it.
//
// A leading byte order mark, comments and trailing commas are accepted since the
// mod loader accepts them too. Content that still cannot be decoded yields an empty
// Manifest together with a *MalformedManifestError; callers are expected to carry on
// without dependency metadata.
func Parse(data []byte, opts ...Option) (Manifest, error) {
	n := newNormalizer(opts)

	cleaned, err := sanitize(data)
	if err != nil {
		return Manifest{}, &MalformedManifestError{Source: n.source, Cause: err}
	}
	dec := json.NewDecoder(bytes.NewReader(cleaned))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Manifest{}, &MalformedManifestError{Source: n.source, Cause: err}
	}
	if _, ok := raw.(map[string]any); !ok {
		return Manifest{}, &MalformedManifestError{Source: n.source, Cause: fmt.Errorf("top-level value is %T, not an object", raw)}
	}

	return Normalize(raw, opts...), nil
}

// sanitize strips a UTF-8 BOM and rewrites JSONC comments and trailing commas
// into standard JSON.
func sanitize(data []byte) ([]byte, error) {
	// Standardize rewrites its input in place.
	data = bytes.Clone(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	return hujson.Standardize(data)
}
