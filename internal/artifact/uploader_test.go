package artifact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeEvidence(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proctoring_STU1_exam.avi")
	if err := os.WriteFile(path, []byte("fake recording bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFSUploaderCopiesFile(t *testing.T) {
	root := t.TempDir()
	uploader := NewFSUploader(root)

	id, err := uploader.Upload(context.Background(), writeEvidence(t))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty artifact id")
	}

	stored := filepath.Join(root, id, "proctoring_STU1_exam.avi")
	data, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "fake recording bytes" {
		t.Fatalf("stored content mismatch: %q", data)
	}
}

func TestFSUploaderMissingFile(t *testing.T) {
	uploader := NewFSUploader(t.TempDir())
	if _, err := uploader.Upload(context.Background(), "/nonexistent/evidence.avi"); err == nil {
		t.Fatal("expected error for missing evidence file")
	}
}

func TestHTTPUploaderSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		w.Write([]byte(`{"id":"remote-123"}`))
	}))
	defer server.Close()

	uploader := NewHTTPUploader(server.URL, StaticCredentials("tok-abc"))
	id, err := uploader.Upload(context.Background(), writeEvidence(t))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if id != "remote-123" {
		t.Fatalf("expected remote-123, got %q", id)
	}
	if gotAuth != "Bearer tok-abc" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
}

func TestHTTPUploaderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	uploader := NewHTTPUploader(server.URL, StaticCredentials("tok"))
	if _, err := uploader.Upload(context.Background(), writeEvidence(t)); err == nil {
		t.Fatal("expected error on server failure")
	}
}

func TestExpiringCredentialsRefreshOnce(t *testing.T) {
	var calls int32
	creds := &ExpiringCredentials{
		Refresh: func(_ context.Context) (string, time.Duration, error) {
			atomic.AddInt32(&calls, 1)
			return "fresh", time.Hour, nil
		},
	}

	for i := 0; i < 5; i++ {
		token, err := creds.Token(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if token != "fresh" {
			t.Fatalf("unexpected token %q", token)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected single refresh, got %d", got)
	}
}

func TestExpiringCredentialsRefreshAfterExpiry(t *testing.T) {
	var calls int32
	creds := &ExpiringCredentials{
		Leeway: time.Nanosecond,
		Refresh: func(_ context.Context) (string, time.Duration, error) {
			atomic.AddInt32(&calls, 1)
			return "short", time.Millisecond, nil
		},
	}

	if _, err := creds.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := creds.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected refresh after expiry, got %d calls", got)
	}
}

func TestExpiringCredentialsRefreshError(t *testing.T) {
	wantErr := errors.New("idp down")
	creds := &ExpiringCredentials{
		Refresh: func(_ context.Context) (string, time.Duration, error) {
			return "", 0, wantErr
		},
	}
	if _, err := creds.Token(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected refresh error, got %v", err)
	}
}
