package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"watermark-studio/internal/storage"
)

// Store writes objects under a root directory; object paths map directly to
// relative file paths.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create root %s: %v", storage.ErrStorage, root, err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(ctx context.Context, path string, data io.Reader, size int64, contentType string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir for %s: %v", storage.ErrStorage, path, err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", storage.ErrStorage, path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("%w: write %s: %v", storage.ErrStorage, path, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", storage.ErrStorage, path, err)
	}

	return f, nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", storage.ErrStorage, path, err)
	}
	return nil
}

func (s *Store) DeleteWithPrefix(ctx context.Context, prefix string) error {
	full, err := s.resolve(prefix)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("%w: remove prefix %s: %v", storage.ErrStorage, prefix, err)
	}
	return nil
}

func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("%w: invalid path %q", storage.ErrStorage, path)
	}
	return filepath.Join(s.root, clean), nil
}
