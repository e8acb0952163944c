// Package store persists flows. It defines the FlowStore contract the
// editor session talks to, plus three implementations: an in-memory
// store for tests, a SQLite store for the bundled server, and an HTTP
// client for a remote flow service.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/whatbot/flowedit/pkg/flowedit"
)

// Status is a flow's lifecycle state.
type Status string

// Flow lifecycle states.
const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Flow is one saved bot flow with its metadata.
type Flow struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Status       Status         `json:"status"`
	NodeCount    int            `json:"nodeCount"`
	FlowData     flowedit.Graph `json:"flowData"`
	LastModified time.Time      `json:"lastModified"`
}

// Summary is the listing projection of a flow, without graph data.
type Summary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       Status    `json:"status"`
	NodeCount    int       `json:"nodeCount"`
	LastModified time.Time `json:"lastModified"`
}

// Summarize returns the listing projection of a flow.
func (f Flow) Summarize() Summary {
	return Summary{
		ID:           f.ID,
		Name:         f.Name,
		Status:       f.Status,
		NodeCount:    f.NodeCount,
		LastModified: f.LastModified,
	}
}

// Store persists flows, keyed by opaque string IDs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create stores a new flow. The store assigns the ID and returns
	// the stored record.
	Create(ctx context.Context, flow Flow) (Flow, error)

	// Update replaces an existing flow's content and metadata.
	// Returns ErrNotFound if the flow doesn't exist.
	Update(ctx context.Context, id string, flow Flow) (Flow, error)

	// Get retrieves a flow. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (Flow, error)

	// List returns summaries of all flows, newest first.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes a flow. Deleting a missing flow returns nil.
	Delete(ctx context.Context, id string) error

	// Publish marks a flow published and returns the updated record.
	Publish(ctx context.Context, id string) (Flow, error)

	// Unpublish puts a flow back into draft and returns the updated
	// record.
	Unpublish(ctx context.Context, id string) (Flow, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a flow doesn't exist.
	ErrNotFound = errors.New("flow not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("flow store closed")
)

// TransportError wraps a failed call to a remote flow service. The
// message is meant for display; callers fall back to cache on loads and
// surface the error on saves.
type TransportError struct {
	// Op is the operation that failed ("create", "get", "publish", ...).
	Op string
	// Endpoint is the URL path that was called.
	Endpoint string
	// StatusCode is the HTTP status, 0 when the request never completed.
	StatusCode int
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("flow service %s %s: HTTP %d: %v", e.Op, e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("flow service %s %s: %v", e.Op, e.Endpoint, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TransportError) Unwrap() error {
	return e.Err
}
