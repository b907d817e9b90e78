package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DiskStorage writes blobs below Root and serves them under BaseURL.
type DiskStorage struct {
	Root    string
	BaseURL string

	dirs      map[string]bool
	dirsMutex sync.Mutex
}

// NewDiskStorage returns a disk backend rooted at root.
func NewDiskStorage(root, baseURL string) *DiskStorage {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &DiskStorage{Root: root, BaseURL: baseURL, dirs: make(map[string]bool)}
}

func (s *DiskStorage) createDir(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if s.dirs[dir] {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	s.dirs[dir] = true
	return nil
}

func (s *DiskStorage) fullPath(key string) string {
	return filepath.Join(s.Root, filepath.FromSlash(key))
}

// Save writes to a temp file and renames it so readers never see a partial image.
func (s *DiskStorage) Save(_ context.Context, key string, r io.Reader, _ string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	target := s.fullPath(key)
	if err := s.createDir(filepath.Dir(target)); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store image: %w", err)
	}
	return nil
}

// Delete removes the blob. A missing file is not an error.
func (s *DiskStorage) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.fullPath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *DiskStorage) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.BaseURL + key
}
