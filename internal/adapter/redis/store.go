// Package redis persists clock settings in a Redis string key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/clock-sync-engine/internal/config"
)

// cmdable is the subset of redis.Cmdable the store uses.
type cmdable interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Ping(ctx context.Context) *goredis.StatusCmd
}

// Store reads and writes the condensed settings map as JSON.
type Store struct {
	rdb    cmdable
	key    string
	closer func() error
}

// NewStore connects lazily to cfg.RedisAddr.
func NewStore(cfg *config.Config) *Store {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &Store{rdb: rdb, key: cfg.RedisKey, closer: rdb.Close}
}

func newWithCmdable(rdb cmdable, key string) *Store {
	return &Store{rdb: rdb, key: key, closer: func() error { return nil }}
}

// ReadSettings returns the stored settings, or nil when none were saved.
func (s *Store) ReadSettings(ctx context.Context) (map[string]any, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("decode stored settings: %w", err)
	}
	return settings, nil
}

// SaveSettings overwrites the stored settings without expiry.
func (s *Store) SaveSettings(ctx context.Context, settings map[string]any) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// CheckReadiness pings the server.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.closer()
}
