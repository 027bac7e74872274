package repository

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileRepository keeps each collection in <dir>/<name>.json.
type FileRepository struct {
	dir string
}

func NewFileRepository(dir string) *FileRepository {
	if dir == "" {
		dir = "."
	}
	return &FileRepository{dir: dir}
}

func (r *FileRepository) path(name string) string {
	return filepath.Join(r.dir, name+".json")
}

func (r *FileRepository) Load(_ context.Context, name string) ([]byte, bool, error) {
	data, err := os.ReadFile(r.path(name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}

// Replace writes atomically via a temp file so a reader never sees a
// partially written collection.
func (r *FileRepository) Replace(_ context.Context, name string, payload []byte) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	target := r.path(name)
	if existing, err := os.ReadFile(target); err == nil {
		if bytes.Equal(existing, payload) {
			return nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", name, err)
	}

	tmpFile, err := os.CreateTemp(r.dir, filepath.Base(target)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmpFile.Name()
	_, err = tmpFile.Write(payload)
	if err1 := tmpFile.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (r *FileRepository) Close() error {
	return nil
}
