// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// looseVersionRegex accepts one to four numeric components, an optional
// prerelease tag and optional build metadata. A fourth numeric component
// (e.g. "1.5.6.22018"), the prerelease tag and build metadata are dropped
// during coercion.
var looseVersionRegex = regexp.MustCompile(`^[vV]?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:\.\d+)?(?:-[0-9A-Za-z.\-]+)?(?:\+[0-9A-Za-z.\-]+)?$`)

// CoerceVersion turns a loosely written version into canonical "vMAJOR.MINOR.PATCH"
// form accepted by golang.org/x/mod/semver. Missing minor and patch components default
// to zero and a prerelease tag is discarded, so "1.0.0-beta" meets a minimum of
// "1.0.0". It reports false for strings that do not look like a version at all.
func CoerceVersion(s string) (string, bool) {
	matches := looseVersionRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return "", false
	}

	nums := make([]int, 3)
	for i := range nums {
		part := matches[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return "", false
		}
		nums[i] = n
	}

	v := fmt.Sprintf("v%d.%d.%d", nums[0], nums[1], nums[2])
	if !semver.IsValid(v) {
		return "", false
	}
	return v, true
}

// SatisfiesMinimum reports whether candidate lies in the caret range of minimum:
// candidate >= minimum and compatible with it (same major version, or same
// major.minor while the major version is zero, or the exact patch for 0.0.x).
// Versions that cannot be coerced never satisfy.
func SatisfiesMinimum(candidate, minimum string) bool {
	c, ok := CoerceVersion(candidate)
	if !ok {
		return false
	}
	m, ok := CoerceVersion(minimum)
	if !ok {
		return false
	}
	if semver.Compare(c, m) < 0 {
		return false
	}

	switch {
	case semver.Major(m) != "v0":
		return semver.Major(c) == semver.Major(m)
	case semver.MajorMinor(m) != "v0.0":
		return semver.MajorMinor(c) == semver.MajorMinor(m)
	default:
		return release(c) == release(m)
	}
}

// release strips the prerelease suffix from a canonical version.
func release(v string) string {
	base, _, _ := strings.Cut(v, "-")
	return base
}
