// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

type (
	// Diagnostic is a non-fatal finding produced while normalizing a manifest.
	Diagnostic struct {
		// Field is the canonical field name the finding refers to.
		Field string
		// Message describes the problem.
		Message string
	}

	// Option configures Normalize and Parse.
	Option func(*normalizer)

	normalizer struct {
		logger      *log.Logger
		source      string
		diagnostics func(Diagnostic)
	}
)

// String formats the diagnostic for display.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Field, d.Message)
}

// WithLogger reports diagnostics to logger at debug level.
func WithLogger(logger *log.Logger) Option {
	return func(n *normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithSource names the manifest being normalized (usually its path) in diagnostics.
func WithSource(source string) Option {
	return func(n *normalizer) {
		n.source = source
	}
}

// WithDiagnostics registers a callback receiving every diagnostic.
func WithDiagnostics(fn func(Diagnostic)) Option {
	return func(n *normalizer) {
		n.diagnostics = fn
	}
}

func newNormalizer(opts []Option) *normalizer {
	n := &normalizer{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *normalizer) report(field, format string, args ...any) {
	d := Diagnostic{Field: field, Message: fmt.Sprintf(format, args...)}
	if n.source != "" {
		n.logger.Debug("manifest diagnostic", "source", n.source, "field", d.Field, "msg", d.Message)
	} else {
		n.logger.Debug("manifest diagnostic", "field", d.Field, "msg", d.Message)
	}
	if n.diagnostics != nil {
		n.diagnostics(d)
	}
}

// Normalize builds a canonical Manifest from a decoded manifest object.
//
// Fields are looked up by their canonical name first and then by a case-insensitive
// scan of all keys. Missing or mistyped fields are left empty and reported as
// diagnostics. raw is never modified. Anything other than a JSON object yields an
// empty Manifest.
func Normalize(raw any, opts ...Option) Manifest {
	n := newNormalizer(opts)

	obj, ok := raw.(map[string]any)
	if !ok {
		n.report("", "manifest is not an object (got %T)", raw)
		return Manifest{}
	}

	m := Manifest{
		Name:              n.stringField(obj, FieldName),
		Author:            n.stringField(obj, FieldAuthor),
		Version:           n.versionField(obj, FieldVersion),
		Description:       n.stringField(obj, FieldDescription),
		UniqueID:          strings.TrimSpace(n.stringField(obj, FieldUniqueID)),
		EntryDLL:          n.stringField(obj, FieldEntryDLL),
		MinimumAPIVersion: n.stringField(obj, FieldMinimumAPIVersion),
		UpdateKeys:        n.stringListField(obj, FieldUpdateKeys),
		Dependencies:      n.dependenciesField(obj),
	}

	if value, found := lookup(obj, FieldContentPackFor); found {
		if dep, ok := n.dependency(FieldContentPackFor, value); ok {
			m.ContentPackFor = &dep
		}
	}

	return m
}

// lookup finds key in obj, trying the exact spelling before a case-insensitive scan.
// Keys are scanned in sorted order so that objects carrying several spellings of the
// same key resolve deterministically.
func lookup(obj map[string]any, key string) (any, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if strings.EqualFold(k, key) {
			return obj[k], true
		}
	}
	return nil, false
}

func (n *normalizer) stringField(obj map[string]any, key string) string {
	value, found := lookup(obj, key)
	if !found {
		n.report(key, "field not found")
		return ""
	}
	s, ok := scalarString(value)
	if !ok {
		n.report(key, "expected a string, got %T", value)
		return ""
	}
	return s
}

// versionField accepts both version strings and the legacy object form
// {MajorVersion, MinorVersion, PatchVersion, Build}.
func (n *normalizer) versionField(obj map[string]any, key string) string {
	value, found := lookup(obj, key)
	if !found {
		n.report(key, "field not found")
		return ""
	}
	if s, ok := scalarString(value); ok {
		return s
	}
	legacy, ok := value.(map[string]any)
	if !ok {
		n.report(key, "expected a version string, got %T", value)
		return ""
	}
	parts := make([]string, 0, 3)
	for _, part := range []string{"MajorVersion", "MinorVersion", "PatchVersion"} {
		v, _ := lookup(legacy, part)
		s, ok := scalarString(v)
		if !ok || s == "" {
			s = "0"
		}
		parts = append(parts, s)
	}
	version := strings.Join(parts, ".")
	if build, found := lookup(legacy, "Build"); found {
		if s, ok := scalarString(build); ok && s != "" {
			version += "-" + s
		}
	}
	return version
}

func (n *normalizer) stringListField(obj map[string]any, key string) []string {
	value, found := lookup(obj, key)
	if !found {
		n.report(key, "field not found")
		return nil
	}
	items, ok := value.([]any)
	if !ok {
		n.report(key, "expected a list, got %T", value)
		return nil
	}
	var out []string
	for i, item := range items {
		s, ok := scalarString(item)
		if !ok || strings.TrimSpace(s) == "" {
			n.report(key, "entry %d is not a usable string", i)
			continue
		}
		out = append(out, s)
	}
	return out
}

func (n *normalizer) dependenciesField(obj map[string]any) []Dependency {
	value, found := lookup(obj, FieldDependencies)
	if !found {
		n.report(FieldDependencies, "field not found")
		return nil
	}
	items, ok := value.([]any)
	if !ok {
		n.report(FieldDependencies, "expected a list, got %T", value)
		return nil
	}
	var deps []Dependency
	for i, item := range items {
		dep, ok := n.dependency(fmt.Sprintf("%s[%d]", FieldDependencies, i), item)
		if !ok {
			continue
		}
		deps = append(deps, dep)
	}
	return deps
}

// dependency copies one dependency declaration. IsRequired defaults to false.
func (n *normalizer) dependency(field string, value any) (Dependency, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		n.report(field, "expected an object, got %T", value)
		return Dependency{}, false
	}

	var dep Dependency
	if v, found := lookup(obj, FieldUniqueID); found {
		s, _ := scalarString(v)
		dep.UniqueID = strings.TrimSpace(s)
	}
	if dep.UniqueID == "" {
		n.report(field, "missing %s", FieldUniqueID)
	}
	if v, found := lookup(obj, FieldMinimumVersion); found {
		s, _ := scalarString(v)
		dep.MinimumVersion = strings.TrimSpace(s)
	}
	if v, found := lookup(obj, FieldIsRequired); found {
		b, ok := boolValue(v)
		if !ok {
			n.report(field, "%s is not a boolean (%v)", FieldIsRequired, v)
		}
		dep.IsRequired = b
	}
	return dep, true
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.Itoa(t), true
	default:
		return "", false
	}
}

func boolValue(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}
