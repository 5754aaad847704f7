package configstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const currentVersion = 1

// envelope is the versioned on-disk format, grounded on the same
// version-stamped JSON envelope the teacher's file-backed config store
// uses.
type envelope struct {
	Version int     `json:"version"`
	Config  *Config `json:"config"`
}

// FileStore is a file-based Store. Writes are atomic via temp file +
// rename with round-trip validation.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore constructs a FileStore persisting to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the configuration from disk. Returns a nil Config if the
// file does not exist yet.
func (s *FileStore) Load(_ context.Context) (*Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("configstore: read config file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("configstore: parse config file: %w", err)
	}
	if env.Version == 0 {
		return nil, fmt.Errorf("configstore: unversioned config file %s", s.path)
	}
	if env.Version > currentVersion {
		return nil, fmt.Errorf("configstore: config file version %d is newer than supported version %d", env.Version, currentVersion)
	}
	return env.Config, nil
}

// Save atomically writes cfg to disk, verifying the temp file
// round-trips through JSON before committing it via rename.
func (s *FileStore) Save(_ context.Context, cfg *Config) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("configstore: create config directory: %w", err)
	}

	env := envelope{Version: currentVersion, Config: cfg}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("configstore: marshal config: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("configstore: write temp file: %w", err)
	}

	check, err := os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("configstore: read back temp file: %w", err)
	}
	var verify envelope
	if err := json.Unmarshal(check, &verify); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("configstore: round-trip validation failed: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("configstore: rename config file: %w", err)
	}
	return nil
}
