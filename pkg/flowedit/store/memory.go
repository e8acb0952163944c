package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whatbot/flowedit/pkg/flowedit/registry"
)

// MemoryStore is an in-memory flow store for tests and demos.
// Data is lost when the process exits.
type MemoryStore struct {
	flows  *registry.Registry[string, Flow]
	mu     sync.Mutex
	closed bool
}

// NewMemoryStore creates a new in-memory flow store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flows: registry.New[string, Flow](),
	}
}

func (m *MemoryStore) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, flow Flow) (Flow, error) {
	if m.isClosed() {
		return Flow{}, ErrStoreClosed
	}

	flow.ID = uuid.NewString()
	if flow.Status == "" {
		flow.Status = StatusDraft
	}
	flow.LastModified = time.Now().UTC()
	m.flows.Register(flow.ID, flow)
	return flow, nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, id string, flow Flow) (Flow, error) {
	if m.isClosed() {
		return Flow{}, ErrStoreClosed
	}

	existing, ok := m.flows.Get(id)
	if !ok {
		return Flow{}, ErrNotFound
	}

	flow.ID = id
	if flow.Status == "" {
		flow.Status = existing.Status
	}
	flow.LastModified = time.Now().UTC()
	m.flows.Register(id, flow)
	return flow, nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (Flow, error) {
	if m.isClosed() {
		return Flow{}, ErrStoreClosed
	}

	flow, ok := m.flows.Get(id)
	if !ok {
		return Flow{}, ErrNotFound
	}
	return flow, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]Summary, error) {
	if m.isClosed() {
		return nil, ErrStoreClosed
	}

	flows := m.flows.Values()
	sort.Slice(flows, func(i, j int) bool {
		if flows[i].LastModified.Equal(flows[j].LastModified) {
			return flows[i].ID < flows[j].ID
		}
		return flows[i].LastModified.After(flows[j].LastModified)
	})

	summaries := make([]Summary, 0, len(flows))
	for _, f := range flows {
		summaries = append(summaries, f.Summarize())
	}
	return summaries, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	if m.isClosed() {
		return ErrStoreClosed
	}

	m.flows.Delete(id)
	return nil
}

// Publish implements Store.
func (m *MemoryStore) Publish(ctx context.Context, id string) (Flow, error) {
	return m.setStatus(ctx, id, StatusPublished)
}

// Unpublish implements Store.
func (m *MemoryStore) Unpublish(ctx context.Context, id string) (Flow, error) {
	return m.setStatus(ctx, id, StatusDraft)
}

func (m *MemoryStore) setStatus(_ context.Context, id string, status Status) (Flow, error) {
	if m.isClosed() {
		return Flow{}, ErrStoreClosed
	}

	flow, ok := m.flows.Get(id)
	if !ok {
		return Flow{}, ErrNotFound
	}

	flow.Status = status
	flow.LastModified = time.Now().UTC()
	m.flows.Register(id, flow)
	return flow, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of stored flows. Useful for testing.
func (m *MemoryStore) Len() int {
	return m.flows.Len()
}
