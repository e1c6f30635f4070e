package colstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps the pool in a Redis list, one JSON array per element.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects and pings. pool names the list.
func NewRedisStore(cfg RedisConfig, pool string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, key: "eht:cols:" + pool}, nil
}

func (s *RedisStore) Append(ctx context.Context, col []int64) error {
	data, err := json.Marshal(col)
	if err != nil {
		return fmt.Errorf("marshal column: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("append column: %w", err)
	}
	return nil
}

func (s *RedisStore) All(ctx context.Context) ([][]int64, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	cols := make([][]int64, 0, len(items))
	for i, item := range items {
		var col []int64
		if err := json.Unmarshal([]byte(item), &col); err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// Len is the number of stored columns.
func (s *RedisStore) Len(ctx context.Context) (int64, error) {
	return s.client.LLen(ctx, s.key).Result()
}

// Reset deletes the pool.
func (s *RedisStore) Reset(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
