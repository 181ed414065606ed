// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestIsWindowsReservedName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"CON lowercase", "con", true},
		{"CON uppercase", "CON", true},
		{"PRN", "prn", true},
		{"COM9", "com9", true},
		{"LPT1", "lpt1", true},
		{"CON.txt", "con.txt", true},
		{"NUL double extension", "nul.tar.gz", true},
		{"COM10", "com10", false},
		{"CONSOLE", "console", false},
		{"regular mod folder", "ContentPatcher", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsWindowsReservedName(tt.input); got != tt.expected {
				t.Errorf("IsWindowsReservedName(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsPortableFolderName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"[CP] Seasonal Outfits", true},
		{"Lookup Anything", true},
		{"aux", false},
		{"bad:name", false},
		{"trailing.", false},
		{"trailing ", false},
		{"..", false},
		{"", false},
		{"tab\tname", false},
	}

	for _, tt := range tests {
		if got := IsPortableFolderName(tt.input); got != tt.want {
			t.Errorf("IsPortableFolderName(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCatalogTag(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		Windows:   CatalogWindows,
		Darwin:    CatalogMac,
		Linux:     CatalogLinux,
		"freebsd": CatalogLinux,
	}
	for goos, want := range tests {
		if got := CatalogTag(goos); got != want {
			t.Errorf("CatalogTag(%q) = %q, want %q", goos, got, want)
		}
	}
}

func TestPayloadDir(t *testing.T) {
	t.Parallel()

	if got := PayloadDir(Darwin); got != "macOS" {
		t.Errorf("PayloadDir(darwin) = %q", got)
	}
	if got := PayloadDir(Windows); got != "windows" {
		t.Errorf("PayloadDir(windows) = %q", got)
	}
	if got := PayloadDir(Linux); got != "linux" {
		t.Errorf("PayloadDir(linux) = %q", got)
	}
}
