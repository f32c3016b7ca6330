package selection

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a session does not exist or has expired.
var ErrSessionNotFound = errors.New("selection: session not found")

const sessionKeyPrefix = "quote:session:"

// SessionKey returns the Redis hash key holding a session.
func SessionKey(id string) string { return sessionKeyPrefix + id }

// Store persists session state as Redis hashes.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a store. Sessions expire ttl after their last save; a
// non-positive ttl keeps them forever.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl < 0 {
		ttl = 0
	}
	return &Store{client: client, ttl: ttl}
}

// Save replaces the stored state for id and refreshes its expiry.
func (s *Store) Save(ctx context.Context, id string, st State) error {
	if s == nil || s.client == nil {
		return errors.New("selection: redis client not configured")
	}
	fields, err := Encode(st)
	if err != nil {
		return err
	}
	values := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}
	key := SessionKey(id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	return err
}

// Load returns the stored state for id.
func (s *Store) Load(ctx context.Context, id string) (State, error) {
	if s == nil || s.client == nil {
		return State{}, errors.New("selection: redis client not configured")
	}
	fields, err := s.client.HGetAll(ctx, SessionKey(id)).Result()
	if err != nil {
		return State{}, err
	}
	if len(fields) == 0 {
		return State{}, ErrSessionNotFound
	}
	return Decode(fields)
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, SessionKey(id)).Err()
}
