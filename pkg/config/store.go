package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// fileVersion is written to every config file.
const fileVersion = "1.0"

// Store holds section data and moves it to and from durable storage.
type Store interface {
	// Load replaces the in-memory data with what is stored
	Load() error

	// Save writes the in-memory data out
	Save() error

	// GetSection returns a copy of one section's data
	GetSection(sectionID string) (map[string]any, error)

	// SetSection replaces one section's data in memory
	SetSection(sectionID string, data map[string]any) error
}

// fileLayout is the on-disk shape of the config file.
type fileLayout struct {
	Version  string                    `json:"version"`
	Sections map[string]map[string]any `json:"sections"`
}

// FileStore is a Store backed by one JSON file.
type FileStore struct {
	path string

	mu       sync.RWMutex
	version  string
	sections map[string]map[string]any
}

// DefaultPath returns ~/.authlock/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".authlock", "config.json"), nil
}

// NewFileStore opens the store at path, or DefaultPath when path is empty.
// A file that does not exist yet reads as empty.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	s := &FileStore{
		path:     path,
		version:  fileVersion,
		sections: make(map[string]map[string]any),
	}
	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return s, nil
}

// Load rereads the file. In-memory changes that were not saved are lost.
func (s *FileStore) Load() error {
	layout, err := readLayout(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if layout.Version != "" {
		s.version = layout.Version
	}
	s.sections = layout.Sections
	return nil
}

func readLayout(path string) (fileLayout, error) {
	layout := fileLayout{Sections: make(map[string]map[string]any)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return layout, nil
	}
	if err != nil {
		return layout, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(raw, &layout); err != nil {
		return layout, fmt.Errorf("failed to decode config file: %w", err)
	}
	if layout.Sections == nil {
		layout.Sections = make(map[string]map[string]any)
	}
	return layout, nil
}

// Save writes every section to the file. Readers see either the previous
// file or the new one, never a partial write.
func (s *FileStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	encoded, err := json.MarshalIndent(fileLayout{Version: s.version, Sections: s.sections}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeAtomic(s.path, append(encoded, '\n'))
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpPath, 0600)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// GetSection returns a copy of the data stored for sectionID, empty when the
// section has never been written.
func (s *FileStore) GetSection(sectionID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := maps.Clone(s.sections[sectionID])
	if data == nil {
		data = make(map[string]any)
	}
	return data, nil
}

// SetSection keeps a copy of data for sectionID until the next Save.
func (s *FileStore) SetSection(sectionID string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := maps.Clone(data)
	if copied == nil {
		copied = make(map[string]any)
	}
	s.sections[sectionID] = copied
	return nil
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}
