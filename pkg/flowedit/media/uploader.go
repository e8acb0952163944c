package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Upload describes a completed upload, ready to attach to a node.
type Upload struct {
	// URL is the public address of the uploaded file.
	URL string `json:"url"`
	// FileName is the original file name.
	FileName string `json:"fileName"`
	// FileSize is the size in bytes.
	FileSize int64 `json:"fileSize"`
	// FileType is the content type sent with the upload.
	FileType string `json:"fileType"`
}

// Uploader performs two-step uploads against a media service.
type Uploader struct {
	base   string
	client *http.Client
}

// NewUploader creates an uploader for the media service at baseURL. A
// nil client uses a default with a 60s timeout sized for video uploads.
func NewUploader(baseURL string, client *http.Client) *Uploader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Uploader{
		base:   strings.TrimRight(baseURL, "/"),
		client: client,
	}
}

// ticket is the media service's response to an upload request.
type ticket struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
}

// Upload validates the file, obtains a signed upload URL, and streams
// the body to it. Validation failures are *flowedit.ValidationError;
// service failures are plain errors.
func (u *Uploader) Upload(ctx context.Context, kind Kind, fileName, contentType string, size int64, body io.Reader) (Upload, error) {
	if err := Validate(kind, contentType, size); err != nil {
		return Upload{}, err
	}

	tk, err := u.requestTicket(ctx, kind, fileName, contentType)
	if err != nil {
		return Upload{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, tk.UploadURL, body)
	if err != nil {
		return Upload{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size

	resp, err := u.client.Do(req)
	if err != nil {
		return Upload{}, fmt.Errorf("upload %s: %w", fileName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Upload{}, fmt.Errorf("upload %s: HTTP %d", fileName, resp.StatusCode)
	}

	return Upload{
		URL:      tk.PublicURL,
		FileName: fileName,
		FileSize: size,
		FileType: contentType,
	}, nil
}

func (u *Uploader) requestTicket(ctx context.Context, kind Kind, fileName, contentType string) (ticket, error) {
	payload, err := json.Marshal(map[string]string{
		"kind":     string(kind),
		"fileName": fileName,
		"fileType": contentType,
	})
	if err != nil {
		return ticket{}, fmt.Errorf("encode upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.base+"/uploads", bytes.NewReader(payload))
	if err != nil {
		return ticket{}, fmt.Errorf("build ticket request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return ticket{}, fmt.Errorf("request upload URL: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ticket{}, fmt.Errorf("request upload URL: HTTP %d", resp.StatusCode)
	}

	var tk ticket
	if err := json.NewDecoder(resp.Body).Decode(&tk); err != nil {
		return ticket{}, fmt.Errorf("decode upload ticket: %w", err)
	}
	if tk.UploadURL == "" || tk.PublicURL == "" {
		return ticket{}, errors.New("upload ticket missing URLs")
	}
	return tk, nil
}
