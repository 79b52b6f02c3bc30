package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalPrefix is the URL path under which local images are served.
const LocalPrefix = "images/"

// LocalStore keeps images on the local filesystem. References look like
// "images/<name>" and map onto the static /images route.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}


func (s *LocalStore) Backend() string { return "local" }

func (s *LocalStore) Save(_ context.Context, name, _ string, data []byte) (string, error) {
	if _, err := objectKey(LocalPrefix+name, LocalPrefix); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o600); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return LocalPrefix + name, nil
}

func (s *LocalStore) Delete(_ context.Context, ref string) error {
	key, err := objectKey(ref, LocalPrefix)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}
