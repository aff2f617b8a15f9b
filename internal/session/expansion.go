// Package session stores per-viewer expansion state in Redis. Each viewing or
// editing session gets its own expanded-section set per page, so no global
// state is shared between sessions.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"folio/api/internal/section"
)

// ExpansionStore persists expansion sets keyed by (session, page).
type ExpansionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewExpansionStore connects to Redis and verifies the connection.
func NewExpansionStore(redisURL string, ttl time.Duration) (*ExpansionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewExpansionStoreWithClient(client, ttl), nil
}

// NewExpansionStoreWithClient creates a store from an existing Redis client.
func NewExpansionStoreWithClient(client *redis.Client, ttl time.Duration) *ExpansionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExpansionStore{
		client: client,
		prefix: "expand:",
		ttl:    ttl,
	}
}

func (s *ExpansionStore) key(sessionID, pageID string) string {
	return s.prefix + sessionID + ":" + pageID
}

// Save stores the session's expansion set for a page, refreshing its TTL.
func (s *ExpansionStore) Save(ctx context.Context, sessionID, pageID string, e section.Expansion) error {
	data, err := json.Marshal(e.IDs())
	if err != nil {
		return fmt.Errorf("marshal expansion: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID, pageID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save expansion: %w", err)
	}
	return nil
}

// Load returns the stored expansion set and whether one exists. A missing key
// is not an error: it means the session has not opened this page yet and the
// caller should apply the initialization rule.
func (s *ExpansionStore) Load(ctx context.Context, sessionID, pageID string) (section.Expansion, bool, error) {
	data, err := s.client.Get(ctx, s.key(sessionID, pageID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load expansion: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, false, fmt.Errorf("unmarshal expansion: %w", err)
	}
	return section.ExpansionFromIDs(ids), true, nil
}

// Clear removes the stored set for a page.
func (s *ExpansionStore) Clear(ctx context.Context, sessionID, pageID string) error {
	if err := s.client.Del(ctx, s.key(sessionID, pageID)).Err(); err != nil {
		return fmt.Errorf("clear expansion: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *ExpansionStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *ExpansionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
