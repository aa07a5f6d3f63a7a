// Package storage persists uploaded article images.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ImagePrefix is the object key prefix for article images.
const ImagePrefix = "uploads/articles"

// ErrUnsupportedExtension is returned for files outside the allow-list.
var ErrUnsupportedExtension = errors.New("unsupported image extension")

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// Store saves and removes image objects, returning stable reference paths.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, ref string) error
}

// ValidateImageName checks filename against the jpg/jpeg/png allow-list.
func ValidateImageName(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return ErrUnsupportedExtension
	}
	return nil
}

// ImageKey returns a fresh object key that keeps the upload's extension.
func ImageKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(ImagePrefix, uuid.New().String()+ext)
}
