// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

func TestZipBytes(t *testing.T) {
	t.Parallel()

	data := ZipBytes(t, map[string]string{"b/manifest.json": "{}", "a.txt": "hello"})
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "a.txt" || zr.File[1].Name != "b/manifest.json" {
		t.Fatalf("entries = %v", zr.File)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer MustClose(t, rc)
	content, _ := io.ReadAll(rc)
	if string(content) != "hello" {
		t.Errorf("content = %q", content)
	}
}

func TestWriteZip_CreatesParents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "mod.zip")
	WriteZip(t, path, map[string]string{"x": "y"})
	MustWriteFile(t, filepath.Join(filepath.Dir(path), "other", "file"), "z")
}
