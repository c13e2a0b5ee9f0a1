//go:build integration

package blob

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestMinIO_RealServer(t *testing.T) {
	endpoint := os.Getenv("CONTRACTD_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("CONTRACTD_TEST_MINIO_ENDPOINT not set, skipping integration test")
	}
	m, err := NewMinIO(MinIOConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("CONTRACTD_TEST_MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("CONTRACTD_TEST_MINIO_SECRET_KEY"),
		Bucket:    "contractd-test",
	})
	if err != nil {
		t.Fatalf("NewMinIO: %v", err)
	}
	ctx := context.Background()
	if err := m.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}

	key := Key(uuid.NewString())
	if err := m.Put(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	defer m.Delete(ctx, key)

	path, cleanup, err := Materialize(ctx, m, key)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	defer cleanup()
	data, _ := os.ReadFile(path)
	if string(data) != "%PDF-1.4" {
		t.Errorf("got %q", data)
	}

	if _, err := m.Open(ctx, "missing.pdf"); err != ErrNotFound {
		t.Errorf("Open(missing) err = %v, want ErrNotFound", err)
	}
	rc, err := m.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	io.Copy(io.Discard, rc)
	rc.Close()
}
