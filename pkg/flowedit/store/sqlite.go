package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists flows to SQLite.
// It is suitable for single-process production use, such as the bundled
// flow server.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite flow store.
// The path should be a file path (e.g., "./flows.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flows (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			node_count INTEGER NOT NULL DEFAULT 0,
			flow_data BLOB NOT NULL,
			last_modified TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_flows_last_modified
		ON flows(last_modified)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, flow Flow) (Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Flow{}, ErrStoreClosed
	}

	flow.ID = uuid.NewString()
	if flow.Status == "" {
		flow.Status = StatusDraft
	}
	flow.LastModified = time.Now().UTC()

	data, err := json.Marshal(flow.FlowData)
	if err != nil {
		return Flow{}, fmt.Errorf("encode flow data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flows (id, name, description, status, node_count, flow_data, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, flow.ID, flow.Name, flow.Description, string(flow.Status), flow.NodeCount,
		data, flow.LastModified.Format(time.RFC3339Nano))
	if err != nil {
		return Flow{}, fmt.Errorf("create flow: %w", err)
	}
	return flow, nil
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, id string, flow Flow) (Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Flow{}, ErrStoreClosed
	}

	flow.ID = id
	flow.LastModified = time.Now().UTC()

	data, err := json.Marshal(flow.FlowData)
	if err != nil {
		return Flow{}, fmt.Errorf("encode flow data: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE flows
		SET name = ?, description = ?,
		    status = COALESCE(NULLIF(?, ''), status),
		    node_count = ?, flow_data = ?, last_modified = ?
		WHERE id = ?
	`, flow.Name, flow.Description, string(flow.Status), flow.NodeCount,
		data, flow.LastModified.Format(time.RFC3339Nano), id)
	if err != nil {
		return Flow{}, fmt.Errorf("update flow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Flow{}, ErrNotFound
	}
	return s.getLocked(ctx, id)
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Flow{}, ErrStoreClosed
	}
	return s.getLocked(ctx, id)
}

func (s *SQLiteStore) getLocked(ctx context.Context, id string) (Flow, error) {
	var (
		flow      Flow
		status    string
		data      []byte
		timestamp string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, status, node_count, flow_data, last_modified
		FROM flows WHERE id = ?
	`, id).Scan(&flow.ID, &flow.Name, &flow.Description, &status,
		&flow.NodeCount, &data, &timestamp)

	if err == sql.ErrNoRows {
		return Flow{}, ErrNotFound
	}
	if err != nil {
		return Flow{}, fmt.Errorf("load flow: %w", err)
	}

	flow.Status = Status(status)
	flow.LastModified, _ = time.Parse(time.RFC3339Nano, timestamp)
	if err := json.Unmarshal(data, &flow.FlowData); err != nil {
		return Flow{}, fmt.Errorf("decode flow data: %w", err)
	}
	return flow, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, status, node_count, last_modified
		FROM flows
		ORDER BY last_modified DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			sum       Summary
			status    string
			timestamp string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &status, &sum.NodeCount, &timestamp); err != nil {
			return nil, fmt.Errorf("scan flow summary: %w", err)
		}
		sum.Status = Status(status)
		sum.LastModified, _ = time.Parse(time.RFC3339Nano, timestamp)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}
	return summaries, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}

// Publish implements Store.
func (s *SQLiteStore) Publish(ctx context.Context, id string) (Flow, error) {
	return s.setStatus(ctx, id, StatusPublished)
}

// Unpublish implements Store.
func (s *SQLiteStore) Unpublish(ctx context.Context, id string) (Flow, error) {
	return s.setStatus(ctx, id, StatusDraft)
}

func (s *SQLiteStore) setStatus(ctx context.Context, id string, status Status) (Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Flow{}, ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE flows SET status = ?, last_modified = ? WHERE id = ?
	`, string(status), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return Flow{}, fmt.Errorf("set flow status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Flow{}, ErrNotFound
	}
	return s.getLocked(ctx, id)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
