// Package cache provides the editor's fallback layer for flow drafts.
// Every graph mutation is mirrored here synchronously so an editor can
// reopen a draft when the flow service is unreachable. Entries are
// keyed per bot: "flow:{botID}" holds the graph, "botname:{botID}" the
// display name, and the "flow-index" set tracks known bot IDs.
package cache

import (
	"context"
	"errors"

	"github.com/whatbot/flowedit/pkg/flowedit"
)

// Key layout shared by all implementations.
const (
	flowKeyPrefix = "flow:"
	nameKeyPrefix = "botname:"
	indexKey      = "flow-index"
)

// ErrCacheClosed indicates the cache has been closed.
var ErrCacheClosed = errors.New("flow cache closed")

// Cache mirrors per-bot editor state. Implementations must be safe for
// concurrent use. Lookups distinguish "absent" (ok=false, nil error)
// from transport failure.
type Cache interface {
	// PutGraph stores a bot's draft graph and records the bot in the
	// index.
	PutGraph(ctx context.Context, botID string, g flowedit.Graph) error

	// GetGraph loads a bot's draft graph. ok is false when no draft is
	// cached.
	GetGraph(ctx context.Context, botID string) (g flowedit.Graph, ok bool, err error)

	// PutName stores a bot's display name.
	PutName(ctx context.Context, botID, name string) error

	// GetName loads a bot's display name. ok is false when none is
	// cached.
	GetName(ctx context.Context, botID string) (name string, ok bool, err error)

	// Rekey moves all entries from oldID to newID. Used when a draft
	// created under a provisional ID adopts the store-assigned one.
	// Rekeying a bot with no entries is a no-op.
	Rekey(ctx context.Context, oldID, newID string) error

	// Delete removes a bot's graph, name, and index entry. Deleting an
	// unknown bot is a no-op.
	Delete(ctx context.Context, botID string) error

	// BotIDs returns the IDs currently in the index.
	BotIDs(ctx context.Context) ([]string, error)

	// Close releases any resources.
	Close() error
}

func flowKey(botID string) string { return flowKeyPrefix + botID }
func nameKey(botID string) string { return nameKeyPrefix + botID }
