package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoSnapshot is returned by Load when no snapshot has been saved yet
var ErrNoSnapshot = errors.New("no snapshot")

// Snapshotter defines the interface for snapshot operations.
// Save must replace the previous snapshot as a whole or not at all.
type Snapshotter interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, vars map[string]string) error
}

// FileSnapshotter implements Snapshotter as a single JSON file
type FileSnapshotter struct {
	path string
}

// NewFileSnapshotter creates a new FileSnapshotter writing to path
func NewFileSnapshotter(path string) *FileSnapshotter {
	return &FileSnapshotter{path: path}
}

// Path returns the snapshot file location
func (s *FileSnapshotter) Path() string {
	return s.path
}

// Load reads the snapshot file
func (s *FileSnapshotter) Load(_ context.Context) (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	vars := make(map[string]string)
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot file: %w", err)
	}
	return vars, nil
}

// Save writes vars to a temporary file next to the snapshot, syncs it and
// renames it into place.
func (s *FileSnapshotter) Save(_ context.Context, vars map[string]string) error {
	data, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}
	if err = os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}
