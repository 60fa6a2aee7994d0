package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"friendfeed/internal/cache"
	"friendfeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON under session:<id> with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store on client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	data, err := r.client.Get(ctx, cache.SessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.SessionStoreOps.WithLabelValues("redis", "load", "miss").Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		observability.SessionStoreOps.WithLabelValues("redis", "load", "error").Inc()
		return nil, fmt.Errorf("load session: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		observability.SessionStoreOps.WithLabelValues("redis", "load", "error").Inc()
		return nil, fmt.Errorf("decode session: %w", err)
	}
	observability.SessionStoreOps.WithLabelValues("redis", "load", "hit").Inc()
	return &st, nil
}

func (r *RedisStore) Save(ctx context.Context, st *State) error {
	st.UpdatedAt = time.Now()
	data, err := json.Marshal(st)
	if err != nil {
		observability.SessionStoreOps.WithLabelValues("redis", "save", "error").Inc()
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, cache.SessionKey(st.ID), data, r.ttl).Err(); err != nil {
		observability.SessionStoreOps.WithLabelValues("redis", "save", "error").Inc()
		return fmt.Errorf("save session: %w", err)
	}
	observability.SessionStoreOps.WithLabelValues("redis", "save", "ok").Inc()
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, cache.SessionKey(id)).Err(); err != nil {
		observability.SessionStoreOps.WithLabelValues("redis", "delete", "error").Inc()
		return fmt.Errorf("delete session: %w", err)
	}
	observability.SessionStoreOps.WithLabelValues("redis", "delete", "ok").Inc()
	return nil
}

// NewStore picks Redis when a client is available and the memory store otherwise.
func NewStore(client *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = cache.DefaultSessionTTL
	}
	if client == nil {
		return NewMemoryStore(ttl)
	}
	return NewRedisStore(client, ttl)
}
