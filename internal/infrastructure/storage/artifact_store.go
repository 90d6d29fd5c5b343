package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"BeerSync/internal/ports"
)

// FileArtifactStore writes artifacts below a directory. Each write goes to a
// temporary file first and is renamed into place.
type FileArtifactStore struct {
	dir string
}

var _ ports.ArtifactStore = (*FileArtifactStore)(nil)

// NewFileArtifactStore returns a store rooted at dir.
func NewFileArtifactStore(dir string) *FileArtifactStore {
	return &FileArtifactStore{dir: dir}
}

// Put stores data under name and returns the final path. Absolute names are used as-is.
func (s *FileArtifactStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := name
	if !filepath.IsAbs(target) {
		target = filepath.Join(s.dir, name)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("sync artifact %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close artifact %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("chmod artifact %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("rename artifact %s: %w", name, err)
	}

	return target, nil
}
