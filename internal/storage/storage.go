// Package storage keeps uploaded post images as opaque blobs on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"inkwell/internal/config"

	"github.com/google/uuid"
)

// Storage saves, removes and addresses image blobs by key.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// ErrBadKey is returned for keys that could escape the storage root.
var ErrBadKey = errors.New("invalid storage key")

var extRegex = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// NewImageKey returns a fresh key under posts/ that keeps a sane extension of filename.
func NewImageKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if !extRegex.MatchString(ext) {
		ext = ""
	}
	return "posts/" + uuid.NewString() + ext
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrBadKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrBadKey
		}
	}
	return nil
}

// New builds the backend selected by STORAGE_BACKEND.
func New(cfg *config.Config) (Storage, error) {
	switch cfg.StorageBackend {
	case "", "disk":
		return NewDiskStorage(cfg.MediaRoot, cfg.MediaURL), nil
	case "s3":
		return NewS3Storage(S3Options{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Prefix:   cfg.S3Prefix,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
