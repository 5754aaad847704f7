package configstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreLoadMissingReturnsNil(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	cfg, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config for missing file, got %+v", cfg)
	}
}

func TestFileStoreSaveThenLoadRoundTrips(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	want := &Config{
		LoadListener:   ListenerConfig{Addr: ":9000"},
		MaxLoadClients: 50,
		AuthScheme:     "basic",
		ReadOnly:       true,
	}
	if err := s.Save(context.Background(), want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("expected non-nil config")
	}
	if got.LoadListener.Addr != want.LoadListener.Addr || got.MaxLoadClients != want.MaxLoadClients ||
		got.AuthScheme != want.AuthScheme || got.ReadOnly != want.ReadOnly {
		t.Fatalf("round-tripped config = %+v, want %+v", got, want)
	}
}

func TestFileStoreRejectsUnversionedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s := NewFileStore(path)
	if err := s.Save(context.Background(), &Config{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	other := NewFileStore(path)
	if _, err := other.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error reloading valid file: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"config":{}}`), 0o600); err != nil {
		t.Fatalf("write unversioned file: %v", err)
	}
	if _, err := other.Load(context.Background()); err == nil {
		t.Fatal("expected an error loading a file without a version")
	}
}
