// Package cookiestore persists the session cookie string produced by a
// successful login.
package cookiestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Saver persists a cookie string.
type Saver interface {
	Save(cookies string) error
}

// FileStore writes the cookie string to a single file. A write replaces the
// previous file atomically, so readers never observe a partial bundle.
type FileStore struct {
	fs   afero.Fs
	path string
}

var _ Saver = (*FileStore)(nil)

// NewFile returns a store writing to path on the OS filesystem.
func NewFile(path string) *FileStore {
	return NewFileFs(afero.NewOsFs(), path)
}

// NewFileFs returns a store writing to path on fs.
func NewFileFs(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

// Path is the destination file.
func (s *FileStore) Path() string { return s.path }

// Save writes cookies to the destination file via a temporary file in the
// same directory followed by a rename.
func (s *FileStore) Save(cookies string) error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cookie directory %q: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temporary cookie file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = s.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(cookies); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing cookies: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing cookies: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cookie file: %w", err)
	}
	if err := s.fs.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("setting cookie file mode: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing %q: %w", s.path, err)
	}
	committed = true
	return nil
}

// Load returns the stored cookie string. It returns an error satisfying
// errors.Is(err, os.ErrNotExist) when nothing has been saved.
func (s *FileStore) Load() (string, error) {
	b, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		return "", fmt.Errorf("reading %q: %w", s.path, err)
	}
	return string(b), nil
}
