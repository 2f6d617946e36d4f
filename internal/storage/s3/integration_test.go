//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/duckmesh/duckprompt/internal/storage"
)

func TestDatasetRoundTripAgainstMinIO(t *testing.T) {
	endpoint := envOr("DUCKPROMPT_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("DUCKPROMPT_TEST_S3_ENDPOINT is not set")
	}

	cfg := Config{
		Endpoint:         endpoint,
		Region:           envOr("DUCKPROMPT_TEST_S3_REGION", "us-east-1"),
		Bucket:           envOr("DUCKPROMPT_TEST_S3_BUCKET", "duckprompt-it"),
		AccessKeyID:      envOr("DUCKPROMPT_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey:  envOr("DUCKPROMPT_TEST_S3_SECRET_KEY", "miniostorage"),
		UseSSL:           false,
		Prefix:           "integration-tests",
		AutoCreateBucket: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key := "roundtrip.csv"
	payload := []byte("id,name,score\n1,ada,91\n2,bob,78\n")

	info, err := store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("Put().Size = %d, want %d", info.Size, len(payload))
	}
	if location := store.Location(key); location != "s3://roundtrip.csv" {
		t.Fatalf("Location() = %q", location)
	}

	reader, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	readPayload, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("reader.Close() error = %v", err)
	}
	if !bytes.Equal(readPayload, payload) {
		t.Fatalf("Get() payload = %q, want %q", string(readPayload), string(payload))
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrObjectNotFound", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
