package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/entrhq/authlock/pkg/account"
)

// DefaultRedisKey is the hash the lock is kept in.
const DefaultRedisKey = "authlock:session"

const redisTimeout = 3 * time.Second

// Hash fields. The names match the config file keys.
const (
	fieldAuthUser = "authuser"
	fieldLocked   = "locked"
)

// RedisStore shares one account lock between every browser pointed at the
// same Redis hash.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore connects to redisURL (e.g. "redis://localhost:6379/0") and
// keeps the lock in key, or DefaultRedisKey when key is empty.
func NewRedisStore(redisURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{rdb: redis.NewClient(opts), key: key}, nil
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Load returns the shared lock. A missing hash is account 0, unlocked.
func (s *RedisStore) Load() (State, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	fields, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return State{}, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	return decodeFields(fields)
}

// Save replaces the shared lock.
func (s *RedisStore) Save(state State) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := s.rdb.HSet(ctx, s.key, encodeFields(state)).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func encodeFields(state State) map[string]any {
	return map[string]any{
		fieldAuthUser: strconv.Itoa(int(state.Index)),
		fieldLocked:   strconv.FormatBool(state.Locked),
	}
}

func decodeFields(fields map[string]string) (State, error) {
	var state State

	if raw, ok := fields[fieldAuthUser]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return State{}, fmt.Errorf("invalid %s %q: %w", fieldAuthUser, raw, err)
		}
		state.Index = account.Index(n)
		if !state.Index.Valid() {
			return State{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, n)
		}
	}

	if raw, ok := fields[fieldLocked]; ok {
		locked, err := strconv.ParseBool(raw)
		if err != nil {
			return State{}, fmt.Errorf("invalid %s %q: %w", fieldLocked, raw, err)
		}
		state.Locked = locked
	}

	return state, nil
}
