package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix  = "facegate:session:v1:"
	gracePrefix    = "facegate:grace:v1:"
	redirectPrefix = "facegate:redirect:v1:"
	generationKey  = "facegate:session:generation"
)

// RedisStore implements Store on Redis. Session state expires with the
// configured TTL so abandoned sessions cannot stay verified indefinitely.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, id, userID string) (State, error) {
	gen, err := s.client.Incr(ctx, generationKey).Result()
	if err != nil {
		return State{}, fmt.Errorf("assign generation: %w", err)
	}

	state := State{
		UserID:     userID,
		Verified:   false,
		Generation: uint64(gen),
		CreatedAt:  time.Now().UTC(),
	}

	key := sessionPrefix + id
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"user_id", state.UserID,
		"verified", "0",
		"generation", state.Generation,
		"created_at", state.CreatedAt.Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return State{}, fmt.Errorf("store session: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (State, error) {
	values, err := s.client.HGetAll(ctx, sessionPrefix+id).Result()
	if err != nil {
		return State{}, err
	}
	if len(values) == 0 {
		return State{}, ErrNotFound
	}

	state := State{
		UserID:   values["user_id"],
		Verified: values["verified"] == "1",
	}
	if _, err := fmt.Sscanf(values["generation"], "%d", &state.Generation); err != nil {
		return State{}, fmt.Errorf("decode generation: %w", err)
	}
	if created, err := time.Parse(time.RFC3339Nano, values["created_at"]); err == nil {
		state.CreatedAt = created
	}
	return state, nil
}

func (s *RedisStore) MarkVerified(ctx context.Context, id string) error {
	key := sessionPrefix + id
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.client.HSet(ctx, key, "verified", "1").Err()
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionPrefix+id)
	pipe.Del(ctx, gracePrefix+id)
	pipe.Del(ctx, redirectPrefix+id)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) SetGraceMarker(ctx context.Context, id string, window time.Duration) error {
	return s.client.Set(ctx, gracePrefix+id, "1", window).Err()
}

func (s *RedisStore) HasGraceMarker(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, gracePrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) RecordRedirect(ctx context.Context, id, path, state string) (bool, error) {
	key := redirectPrefix + id
	marker := path + "\x00" + state

	prev, err := s.client.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return false, err
	}
	if prev == marker {
		return false, nil
	}
	if err := s.client.Set(ctx, key, marker, s.ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}
