package jobclass

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func writeClassFile(t *testing.T, root, name, contents string) {
	t.Helper()
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, name), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileProviderResolvesAndCompresses(t *testing.T) {
	root := t.TempDir()
	writeClassFile(t, root, "http-load.jclass", "class body goes here")

	p, err := NewFileProvider(root)
	if err != nil {
		t.Fatal(err)
	}

	got, err := p.Resolve("http-load")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(got, nil)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(raw, []byte("class body goes here")) {
		t.Fatalf("round trip mismatch: got %q", raw)
	}
}

func TestFileProviderCachesResult(t *testing.T) {
	root := t.TempDir()
	writeClassFile(t, root, "cached.jclass", "v1")

	p, err := NewFileProvider(root)
	if err != nil {
		t.Fatal(err)
	}
	first, err := p.Resolve("cached")
	if err != nil {
		t.Fatal(err)
	}

	// Mutate the file on disk; a cache hit must still return the
	// original bytes rather than re-reading.
	writeClassFile(t, root, "cached.jclass", "v2")

	second, err := p.Resolve("cached")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("cache did not return the same bytes on the second resolve")
	}
}

func TestFileProviderClassNotFound(t *testing.T) {
	root := t.TempDir()
	p, err := NewFileProvider(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Resolve("missing"); !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("expected ErrClassNotFound, got %v", err)
	}
}
