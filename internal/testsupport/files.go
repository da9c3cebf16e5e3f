package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// ebmlMagic opens every Matroska file. Fixtures start with it so they
// read as containers, not empty placeholders.
var ebmlMagic = []byte{0x1a, 0x45, 0xdf, 0xa3}

// WriteFile drops a fixture of roughly the requested size at path,
// creating parent directories as needed. The payload repeats the EBML
// magic; a size below one repetition still writes the magic once.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	repeats := int(size) / len(ebmlMagic)
	if repeats < 1 {
		repeats = 1
	}
	if err := os.WriteFile(path, bytes.Repeat(ebmlMagic, repeats), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
