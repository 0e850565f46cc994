package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage persists the cart line list between runs.
type Storage interface {
	Load() ([]Line, error)
	Save(lines []Line) error
}

// FileStorage keeps the lines as a JSON array in a single file.
type FileStorage struct {
	Path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{Path: path}
}

// Load returns no lines when the file does not exist yet.
func (f *FileStorage) Load() ([]Line, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("decode cart file %s: %w", f.Path, err)
	}
	return lines, nil
}

// Save writes to a temp file and renames it over the target.
func (f *FileStorage) Save(lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".cart-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// NopStorage keeps nothing.
type NopStorage struct{}

func (NopStorage) Load() ([]Line, error) { return nil, nil }
func (NopStorage) Save([]Line) error     { return nil }
