package store

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

// HTTPStore talks to a remote flow service over REST:
//
//	POST   {base}/flows                 create
//	PUT    {base}/flows/{id}            update
//	GET    {base}/flows/{id}            get
//	GET    {base}/flows                 list
//	DELETE {base}/flows/{id}            delete
//	POST   {base}/flows/{id}/publish    publish
//	POST   {base}/flows/{id}/unpublish  unpublish
//
// Failures surface as *TransportError with a human-readable message;
// a 404 additionally satisfies errors.Is(err, ErrNotFound).
type HTTPStore struct {
	base   string
	client *http.Client
}

// DefaultTimeout bounds each request when no custom client is supplied.
const DefaultTimeout = 10 * time.Second

// NewHTTPStore creates a flow store client for the given base URL
// (e.g., "http://localhost:5001/api"). A nil client uses a default with
// DefaultTimeout.
func NewHTTPStore(baseURL string, client *http.Client) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPStore{
		base:   strings.TrimRight(baseURL, "/"),
		client: client,
	}
}

// errorBody is the failure payload the flow service returns.
type errorBody struct {
	Error string `json:"error"`
}

// do performs one request and decodes a successful response into out.
func (h *HTTPStore) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.base+path, reader)
	if err != nil {
		return &TransportError{Op: op, Endpoint: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &TransportError{Op: op, Endpoint: path, StatusCode: resp.StatusCode, Err: ErrNotFound}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		msg := eb.Error
		if msg == "" {
			msg = resp.Status
		}
		return &TransportError{Op: op, Endpoint: path, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: op, Endpoint: path, StatusCode: resp.StatusCode,
				Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// Create implements Store.
func (h *HTTPStore) Create(ctx context.Context, flow Flow) (Flow, error) {
	var created Flow
	if err := h.do(ctx, "create", http.MethodPost, "/flows", flow, &created); err != nil {
		return Flow{}, err
	}
	return created, nil
}

// Update implements Store.
func (h *HTTPStore) Update(ctx context.Context, id string, flow Flow) (Flow, error) {
	var updated Flow
	if err := h.do(ctx, "update", http.MethodPut, "/flows/"+id, flow, &updated); err != nil {
		return Flow{}, err
	}
	return updated, nil
}

// Get implements Store.
func (h *HTTPStore) Get(ctx context.Context, id string) (Flow, error) {
	var flow Flow
	if err := h.do(ctx, "get", http.MethodGet, "/flows/"+id, nil, &flow); err != nil {
		return Flow{}, err
	}
	return flow, nil
}

// List implements Store.
func (h *HTTPStore) List(ctx context.Context) ([]Summary, error) {
	var summaries []Summary
	if err := h.do(ctx, "list", http.MethodGet, "/flows", nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Delete implements Store.
func (h *HTTPStore) Delete(ctx context.Context, id string) error {
	return h.do(ctx, "delete", http.MethodDelete, "/flows/"+id, nil, nil)
}

// Publish implements Store.
func (h *HTTPStore) Publish(ctx context.Context, id string) (Flow, error) {
	var flow Flow
	if err := h.do(ctx, "publish", http.MethodPost, "/flows/"+id+"/publish", nil, &flow); err != nil {
		return Flow{}, err
	}
	return flow, nil
}

// Unpublish implements Store.
func (h *HTTPStore) Unpublish(ctx context.Context, id string) (Flow, error) {
	var flow Flow
	if err := h.do(ctx, "unpublish", http.MethodPost, "/flows/"+id+"/unpublish", nil, &flow); err != nil {
		return Flow{}, err
	}
	return flow, nil
}

// Close implements Store. The underlying http.Client needs no teardown.
func (h *HTTPStore) Close() error {
	return nil
}
