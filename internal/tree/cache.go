package tree

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "tree:v1:"

// Cache is a short-TTL Redis cache for assembled tree views. Tree reads only
// need to be eventually consistent with completed writes, so a stale view
// within the TTL is acceptable. All failures degrade to a cache miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache builds a tree view cache.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Get returns a cached view if one exists.
func (c *Cache) Get(ctx context.Context, rootID string, maxDepth int, mode Mode) (*Node, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, c.key(rootID, maxDepth, mode)).Bytes()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.Warn("tree cache lookup failed", slog.Any("error", err))
		}
		return nil, false
	}
	var node Node
	if err := json.Unmarshal(payload, &node); err != nil {
		return nil, false
	}
	return &node, true
}

// Put stores a view; failures are logged and otherwise ignored.
func (c *Cache) Put(ctx context.Context, rootID string, maxDepth int, mode Mode, node *Node) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(node)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(rootID, maxDepth, mode), payload, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("tree cache store failed", slog.Any("error", err))
	}
}

func (c *Cache) key(rootID string, maxDepth int, mode Mode) string {
	return fmt.Sprintf("%s%s:%s:%d", cachePrefix, mode, rootID, maxDepth)
}
