package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend stores each collection as <dir>/<collection>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a backend rooted at dir. The directory is created
// on first save.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

// Name returns "file".
func (b *FileBackend) Name() string {
	return "file"
}

// Dir returns the backend's root directory.
func (b *FileBackend) Dir() string {
	return b.dir
}

// Load reads the collection's file.
func (b *FileBackend) Load(ctx context.Context, c Collection) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(b.dir, c.FileName()))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: read %s: %w", c, err)
	}
	return data, nil
}

// Save writes the body to a temporary file in the same directory and renames
// it over the collection's file, so readers see the old or the new document.
func (b *FileBackend) Save(ctx context.Context, c Collection, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("store: create %s: %w", b.dir, err)
	}

	tmp, err := os.CreateTemp(b.dir, "."+c.FileName()+".*")
	if err != nil {
		return fmt.Errorf("store: temp file for %s: %w", c, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write %s: %w", c, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: sync %s: %w", c, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close %s: %w", c, err)
	}

	if err := os.Rename(tmpName, filepath.Join(b.dir, c.FileName())); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename %s: %w", c, err)
	}
	return nil
}

// Close is a no-op.
func (b *FileBackend) Close() error {
	return nil
}
