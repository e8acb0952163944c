package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/whatbot/flowedit/pkg/flowedit"
)

// RedisCache stores editor state in Redis so drafts survive process
// restarts and are shared across editor instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache over an existing Redis client. The
// caller owns the client's lifecycle except that Close closes it.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// PutGraph implements Cache.
func (c *RedisCache) PutGraph(ctx context.Context, botID string, g flowedit.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, flowKey(botID), data, 0)
	pipe.SAdd(ctx, indexKey, botID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache graph: %w", err)
	}
	return nil
}

// GetGraph implements Cache.
func (c *RedisCache) GetGraph(ctx context.Context, botID string) (flowedit.Graph, bool, error) {
	data, err := c.client.Get(ctx, flowKey(botID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return flowedit.Graph{}, false, nil
	}
	if err != nil {
		return flowedit.Graph{}, false, fmt.Errorf("load cached graph: %w", err)
	}

	var g flowedit.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return flowedit.Graph{}, false, fmt.Errorf("decode cached graph: %w", err)
	}
	return g, true, nil
}

// PutName implements Cache.
func (c *RedisCache) PutName(ctx context.Context, botID, name string) error {
	if err := c.client.Set(ctx, nameKey(botID), name, 0).Err(); err != nil {
		return fmt.Errorf("cache bot name: %w", err)
	}
	return nil
}

// GetName implements Cache.
func (c *RedisCache) GetName(ctx context.Context, botID string) (string, bool, error) {
	name, err := c.client.Get(ctx, nameKey(botID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load cached bot name: %w", err)
	}
	return name, true, nil
}

// Rekey implements Cache.
func (c *RedisCache) Rekey(ctx context.Context, oldID, newID string) error {
	moved := false
	if err := c.client.Rename(ctx, flowKey(oldID), flowKey(newID)).Err(); err == nil {
		moved = true
	} else if !isNoSuchKey(err) {
		return fmt.Errorf("rekey graph: %w", err)
	}
	if err := c.client.Rename(ctx, nameKey(oldID), nameKey(newID)).Err(); err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("rekey bot name: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.SRem(ctx, indexKey, oldID)
	if moved {
		pipe.SAdd(ctx, indexKey, newID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rekey index: %w", err)
	}
	return nil
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, botID string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, flowKey(botID), nameKey(botID))
	pipe.SRem(ctx, indexKey, botID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("evict cached flow: %w", err)
	}
	return nil
}

// BotIDs implements Cache.
func (c *RedisCache) BotIDs(ctx context.Context) ([]string, error) {
	ids, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list cached bots: %w", err)
	}
	return ids, nil
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// isNoSuchKey reports whether a RENAME failed only because the source
// key was absent.
func isNoSuchKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such key")
}
