package studio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultStoreFile is the file the local variant keeps saved stories in.
const DefaultStoreFile = "sunday_stories.json"

// SavedStore persists the saved-story list of the local variant.
type SavedStore interface {
	Load() ([]Story, error)
	Save([]Story) error
}

// FileStore keeps the saved list as one JSON array on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultStoreFile
	}
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

// Load returns an empty list when the file does not exist yet.
func (f *FileStore) Load() ([]Story, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Story{}, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Story
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse saved stories %s: %w", f.path, err)
	}
	return out, nil
}

// Save replaces the file atomically.
func (f *FileStore) Save(list []Story) error {
	if list == nil {
		list = []Story{}
	}
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".sunday_stories-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
