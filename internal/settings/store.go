package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/pelletier/go-toml/v2"
)

// FileStore keeps Settings in a TOML file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store for path.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = "stream.toml"
	}
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the file. A missing or empty file is reported as not configured
// (ok == false) with Defaults and a nil error.
func (s *FileStore) Load() (Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), false, nil
	}
	if err != nil {
		return Defaults(), false, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Defaults(), false, nil
	}

	cfg, err := Parse(data)
	if err != nil {
		return Defaults(), false, err
	}
	return cfg, true, nil
}

// Save writes cfg atomically.
func (s *FileStore) Save(cfg Settings) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Parse decodes TOML on top of Defaults.
func Parse(data []byte) (Settings, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("failed to parse settings: %w", err)
	}
	if cfg.PerformanceProfile == "" {
		cfg.PerformanceProfile = ProfileVPSOptimized
	}
	return cfg, nil
}

// LoadFile reads and parses path. Used by the config watcher. A missing or
// empty file returns ErrNotConfigured.
func LoadFile(path string) (Settings, error) {
	cfg, ok, err := NewFileStore(path).Load()
	if err != nil {
		return cfg, err
	}
	if !ok {
		return cfg, fmt.Errorf("%s: %w", path, ErrNotConfigured)
	}
	return cfg, nil
}
