package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/octorelay/octorelay/internal/model"
)

// RedisStore keeps the cursor as a JSON string under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (model.Cursor, bool) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "cursor unreadable from redis, relaying from current feed window",
				"key", s.key, "error", err)
		}
		return model.Cursor{}, false
	}

	var c model.Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		slog.WarnContext(ctx, "cursor in redis corrupt, relaying from current feed window",
			"key", s.key, "error", err)
		return model.Cursor{}, false
	}
	if c.IsZero() {
		return model.Cursor{}, false
	}
	return c, true
}

func (s *RedisStore) Save(ctx context.Context, c model.Cursor) error {
	data, err := json.Marshal(c)
	if err != nil {
		return &PersistenceError{Backend: "redis", ID: c.ID, Err: err}
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return &PersistenceError{Backend: "redis", ID: c.ID, Err: err}
	}
	return nil
}
