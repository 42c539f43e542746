// Package cache stores ranked references per search query in Redis so that
// repeated queries skip the external search.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jimdaga/unipost/internal/references"
)

// KeyPrefix namespaces every cache entry.
const KeyPrefix = "embeddings:"

// DefaultTTL is used when the cache is created with a zero TTL.
const DefaultTTL = 24 * time.Hour

// entry is the stored JSON document.
type entry struct {
	Query          string         `json:"query"`
	EmbeddingsData embeddingsData `json:"embeddings_data"`
	Timestamp      string         `json:"timestamp"`
}

type embeddingsData struct {
	SimilarTexts []references.Reference `json:"similar_texts"`
}

// EmbeddingCache is a Redis-backed query → references cache. Expiry is
// delegated to Redis through the key TTL.
type EmbeddingCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New creates an EmbeddingCache.
func New(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &EmbeddingCache{rdb: rdb, ttl: ttl, logger: logger, now: time.Now}
}

// Key returns the Redis key of query. Queries are normalized by trimming
// and lowercasing before hashing.
func Key(query string) string {
	sum := md5.Sum([]byte(normalize(query)))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

func normalize(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Get returns the cached references of query. The boolean is false on a
// miss. A stored empty list is a hit with a non-nil empty slice.
func (c *EmbeddingCache) Get(ctx context.Context, query string) ([]references.Reference, bool, error) {
	raw, err := c.rdb.Get(ctx, Key(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// A corrupt entry is dropped and treated as a miss.
		c.logger.Warn("discarding unreadable cache entry", "search_query", query, "error", err)
		c.rdb.Del(ctx, Key(query))
		return nil, false, nil
	}

	refs := e.EmbeddingsData.SimilarTexts
	if refs == nil {
		refs = []references.Reference{}
	}
	return refs, true, nil
}

// Put stores refs under query with the configured TTL.
func (c *EmbeddingCache) Put(ctx context.Context, query string, refs []references.Reference) error {
	e := entry{
		Query:          query,
		EmbeddingsData: embeddingsData{SimilarTexts: refs},
		Timestamp:      c.now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.rdb.Set(ctx, Key(query), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Clear deletes every cache entry and returns how many keys were removed.
func (c *EmbeddingCache) Clear(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, KeyPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("failed to delete cache keys: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Info("embedding cache cleared", "removed", removed)
	return removed, nil
}
