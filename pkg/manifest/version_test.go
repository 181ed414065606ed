// SPDX-License-Identifier: MPL-2.0

package manifest

import "testing"

func TestCoerceVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1.2.3", "v1.2.3", true},
		{"1.2", "v1.2.0", true},
		{"3", "v3.0.0", true},
		{"v2.0.0", "v2.0.0", true},
		{"1.5.6.22018", "v1.5.6", true},
		{"1.0.0-beta.2", "v1.0.0", true},
		{"1.0.0+build.5", "v1.0.0", true},
		{" 1.1.0 ", "v1.1.0", true},
		{"", "", false},
		{"latest", "", false},
		{"1.x", "", false},
	}

	for _, tt := range tests {
		got, ok := CoerceVersion(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CoerceVersion(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSatisfiesMinimum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		candidate string
		minimum   string
		want      bool
	}{
		{"1.2.0", "1.0.0", true},
		{"1.2.0", "2.0.0", false},
		{"1.0.0", "1.0.0", true},
		{"1.9", "1.2.5", true},
		{"2.1.0", "1.0.0", false},
		{"0.3.1", "0.3.0", true},
		{"0.4.0", "0.3.0", false},
		{"0.0.3", "0.0.3", true},
		{"0.0.4", "0.0.3", false},
		{"1.0.0-beta", "1.0.0", true},
		{"1.2.0-rc.1", "1.2.0", true},
		{"0.9.0-beta", "1.0.0", false},
		{"garbage", "1.0.0", false},
		{"1.0.0", "garbage", false},
	}

	for _, tt := range tests {
		if got := SatisfiesMinimum(tt.candidate, tt.minimum); got != tt.want {
			t.Errorf("SatisfiesMinimum(%q, %q) = %v, want %v", tt.candidate, tt.minimum, got, tt.want)
		}
	}
}
