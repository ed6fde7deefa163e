// Package identity persists the device's display name.
//
// The name is free text, captured once and attached to every record the
// device creates. A missing name is a setup condition the user resolves,
// never an internal fault.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotSet means no display name has been stored on this device yet.
var ErrNotSet = errors.New("display name not set")

// FileStore keeps the display name in a plain file.
type FileStore struct {
	path string
}

// NewFileStore returns a store persisting at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DisplayName returns the stored name, or ErrNotSet.
func (s *FileStore) DisplayName() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotSet
	}
	if err != nil {
		return "", fmt.Errorf("read display name: %w", err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", ErrNotSet
	}
	return name, nil
}

// SetDisplayName trims and persists the name. Blank names are rejected.
func (s *FileStore) SetDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("display name cannot be blank")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create identity directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(name+"\n"), 0644); err != nil {
		return fmt.Errorf("write display name: %w", err)
	}
	return nil
}
