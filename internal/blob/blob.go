// Package blob stores uploaded contract files on local disk or in an
// S3-compatible bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("blob not found")

// Store persists opaque files under flat keys.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Pather is implemented by stores whose blobs are already local files.
type Pather interface {
	Path(key string) (string, error)
}

// Key returns the key under which a contract's upload is stored.
func Key(contractID string) string {
	return contractID + ".pdf"
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}

// Materialize returns a local path for key. Local stores return the stored
// file itself; other stores copy the blob to a temp file. The caller must
// call cleanup when done with the path.
func Materialize(ctx context.Context, s Store, key string) (path string, cleanup func(), err error) {
	if p, ok := s.(Pather); ok {
		path, err := p.Path(key)
		if err != nil {
			return "", nil, err
		}
		return path, func() {}, nil
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	f, err := os.CreateTemp("", "contractd-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	cleanup = func() { os.Remove(f.Name()) }

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}
