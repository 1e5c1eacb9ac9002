// Package imagestore persists uploaded listing and avatar images and returns
// the public URL clients load them from.
package imagestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/apperr"
)

// MaxImageBytes caps a single upload.
const MaxImageBytes = 5 << 20

var (
	ErrTooLarge        = apperr.Validation("image must be 5 MB or smaller")
	ErrUnsupportedType = apperr.Validation("image must be JPEG, PNG, WebP or GIF")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Store saves one image and returns its URL.
type Store interface {
	Put(ctx context.Context, contentType string, r io.Reader) (string, error)
}

// ObjectKey returns a fresh, collision-free name for an image of
// contentType under prefix.
func ObjectKey(prefix, contentType string) (string, error) {
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedType
	}
	key := uuid.NewString() + ext
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key, nil
}

// readLimited reads r fully, failing once it exceeds MaxImageBytes.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Local writes images under a directory served at BaseURL.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates dir when missing.
func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("imagestore: create %s: %w", dir, err)
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the directory images are written to.
func (l *Local) Put(ctx context.Context, contentType string, r io.Reader) (string, error) {
	key, err := ObjectKey("", contentType)
	if err != nil {
		return "", err
	}
	data, err := readLimited(r)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(l.dir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("imagestore: write: %w", err)
	}
	return l.baseURL + "/" + key, nil
}

var _ Store = (*Local)(nil)
