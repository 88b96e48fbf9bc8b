package blob

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	appcfg "github.com/fdg312/run-coach/internal/config"
)

func TestNewBlobStoreLocalForced(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	dir := t.TempDir()

	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{
		Mode:     appcfg.BlobModeLocal,
		LocalDir: dir,
	}, logger)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mode != appcfg.BlobModeLocal {
		t.Fatalf("expected mode=local, got %s", mode)
	}
	local, ok := store.(*LocalStore)
	if !ok || local.Root() != dir {
		t.Fatalf("expected local store rooted at %s, got %#v", dir, store)
	}
	if !strings.Contains(buf.String(), "mode=local (forced)") {
		t.Fatalf("expected local mode log, got: %s", buf.String())
	}
}

func TestNewBlobStoreAutoEmptyS3FallsBackToLocal(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{
		Mode:     appcfg.BlobModeAuto,
		LocalDir: t.TempDir(),
	}, logger)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mode != appcfg.BlobModeLocal {
		t.Fatalf("expected mode=local fallback, got %s", mode)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Fatalf("expected local store on auto fallback, got %T", store)
	}

	logOut := buf.String()
	if !strings.Contains(logOut, "code=s3_not_configured") {
		t.Fatalf("expected s3_not_configured diagnostics, got: %s", logOut)
	}
	if !strings.Contains(logOut, "mode=local (auto, S3 not configured)") {
		t.Fatalf("expected auto fallback to local log, got: %s", logOut)
	}
}

func TestNewBlobStoreS3MissingRequiredReturnsError(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{
		Mode: appcfg.BlobModeS3,
		S3: appcfg.S3Config{
			Endpoint: "https://s3.example.com",
		},
	}, logger)
	if err == nil {
		t.Fatal("expected error when mode=s3 and required env are missing")
	}
	if store != nil || mode != "" {
		t.Fatalf("expected nil store and empty mode on error, got store=%v mode=%q", store, mode)
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Fatalf("expected missing required config error, got: %v", err)
	}
}

func TestNewBlobStoreS3Configured(t *testing.T) {
	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{
		Mode: appcfg.BlobModeS3,
		S3: appcfg.S3Config{
			Endpoint:        "http://127.0.0.1:9000",
			Region:          "us-east-1",
			Bucket:          "exports",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
			PublicBaseURL:   "https://cdn.example.com/exports/",
		},
	}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if mode != appcfg.BlobModeS3 {
		t.Fatalf("expected mode=s3, got %s", mode)
	}

	url, err := store.PresignGet(context.Background(), "a/b.pdf", 60)
	if err != nil {
		t.Fatalf("presign failed: %v", err)
	}
	if url != "https://cdn.example.com/exports/a/b.pdf" {
		t.Fatalf("unexpected public url %q", url)
	}
}

func TestNewBlobStoreUnknownMode(t *testing.T) {
	if _, _, err := NewBlobStore(context.Background(), appcfg.BlobConfig{Mode: "ftp"}, nil); err == nil {
		t.Fatal("expected error for unsupported mode")
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}

	n, err := store.PutObject(ctx, "exports/user/t.csv", []byte("a,b\n"), "text/csv")
	if err != nil || n != 4 {
		t.Fatalf("put failed: n=%d err=%v", n, err)
	}
	data, err := store.GetObject(ctx, "exports/user/t.csv")
	if err != nil || string(data) != "a,b\n" {
		t.Fatalf("get failed: %q %v", data, err)
	}
	if _, err := store.PresignGet(ctx, "exports/user/t.csv", 60); !errors.Is(err, ErrPresignUnsupported) {
		t.Fatalf("expected ErrPresignUnsupported, got %v", err)
	}
	if err := store.DeleteObject(ctx, "exports/user/t.csv"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetObject(ctx, "exports/user/t.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteObject(ctx, "exports/user/t.csv"); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	for _, key := range []string{"", "../x", "/etc/passwd", "a/../../x"} {
		if _, err := store.PutObject(context.Background(), key, nil, ""); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}
