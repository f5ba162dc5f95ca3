// Package blob is the persistent object store collaborator: flat read/write/
// exists over named paths. Production uses the OS filesystem rooted at the
// bucket directory; tests use an in-memory filesystem.
package blob

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Store reads and writes whole objects by path. Writes always replace the
// object; there is no append.
type Store interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Exists(path string) (bool, error)
	List(prefix string) ([]string, error)
}

// fsStore backs Store with an afero filesystem.
type fsStore struct {
	fs afero.Fs
}

// NewDirStore returns a Store rooted at dir on the OS filesystem, creating
// the directory if needed.
func NewDirStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory %s: %w", dir, err)
	}
	return &fsStore{fs: afero.NewBasePathFs(afero.NewOsFs(), dir)}, nil
}

// NewMemStore returns an in-memory Store for tests.
func NewMemStore() Store {
	return &fsStore{fs: afero.NewMemMapFs()}
}

func (s *fsStore) Read(path string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", path, err)
	}
	return data, nil
}

func (s *fsStore) Write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create parent of %s: %w", path, err)
		}
	}
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write object %s: %w", path, err)
	}
	return nil
}

func (s *fsStore) Exists(path string) (bool, error) {
	ok, err := afero.Exists(s.fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to stat object %s: %w", path, err)
	}
	return ok, nil
}

// List returns the paths of objects whose name starts with prefix, relative
// to the store root.
func (s *fsStore) List(prefix string) ([]string, error) {
	var paths []string
	err := afero.Walk(s.fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := filepath.ToSlash(path)
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			paths = append(paths, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects with prefix %s: %w", prefix, err)
	}
	return paths, nil
}
