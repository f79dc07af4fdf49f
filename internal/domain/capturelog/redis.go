package capturelog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client     *redis.Client
	prefix     string
	maxEntries int
}

// NewRedis constructs a redis-backed capture log. Entries live in a capped list.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "screamshot:captures"
	}
	return &redisStore{
		client:     client,
		prefix:     prefix,
		maxEntries: cfg.maxEntries(),
	}, nil
}

func (s *redisStore) listKey() string  { return s.prefix + ":log" }
func (s *redisStore) statsKey() string { return s.prefix + ":stats" }

func (s *redisStore) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("entry id required")
	}
	data, err := sonic.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.listKey(), data)
		pipe.LTrim(ctx, s.listKey(), 0, int64(s.maxEntries-1))
		pipe.HIncrBy(ctx, s.statsKey(), entry.Status, 1)
		return nil
	})
	return err
}

func (s *redisStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	limit = clampLimit(limit, s.maxEntries)
	raw, err := s.client.LRange(ctx, s.listKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := sonic.UnmarshalString(item, &entry); err != nil {
			return nil, fmt.Errorf("decode capture entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	retained, err := s.client.LLen(ctx, s.listKey()).Result()
	if err != nil {
		return nil, err
	}
	counts, err := s.client.HGetAll(ctx, s.statsKey()).Result()
	if err != nil {
		return nil, err
	}

	var total int64
	byStatus := make(map[string]int64, len(counts))
	for status, v := range counts {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		byStatus[status] = n
		total += n
	}
	return map[string]any{
		"type":      DriverRedis,
		"total":     total,
		"retained":  retained,
		"capacity":  s.maxEntries,
		"by_status": byStatus,
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
