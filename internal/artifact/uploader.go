package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Uploader stores an evidence file and returns the identifier assigned
// by the backing store.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// FSUploader copies evidence into a local directory tree. Each upload
// gets a fresh id so repeated uploads of the same session never clobber
// each other.
type FSUploader struct {
	Root string
}

func NewFSUploader(root string) *FSUploader {
	return &FSUploader{Root: root}
}

func (u *FSUploader) Upload(_ context.Context, path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open evidence: %w", err)
	}
	defer src.Close()

	id := uuid.NewString()
	dir := filepath.Join(u.Root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(dir, filepath.Base(path)))
	if err != nil {
		return "", fmt.Errorf("create artifact file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy evidence: %w", err)
	}
	return id, nil
}

// HTTPUploader posts evidence to a remote artifact service as multipart
// form data, authenticating with tokens from the credential provider.
type HTTPUploader struct {
	Endpoint    string
	Credentials CredentialProvider
	Client      *http.Client
}

func NewHTTPUploader(endpoint string, creds CredentialProvider) *HTTPUploader {
	return &HTTPUploader{
		Endpoint:    endpoint,
		Credentials: creds,
		Client:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (u *HTTPUploader) Upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open evidence: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.Endpoint, pr)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	token, err := u.Credentials.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("artifact credentials: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := u.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload evidence: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("artifact service returned %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode artifact response: %w", err)
	}
	if payload.ID == "" {
		return "", fmt.Errorf("artifact service returned empty id")
	}
	return payload.ID, nil
}
