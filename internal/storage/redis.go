package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	logx "requestbot/pkg/logx"
)

const (
	redisFieldContact = "contact"
	redisFieldService = "service"
)

type redisStore struct {
	client *redis.Client
	key    string
	log    logx.Logger
}

func openRedis(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("storage.redis_addr is required for redis driver")
	}
	key := strings.TrimSpace(cfg.RedisKey)
	if key == "" {
		key = "requestbot:cursors"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &redisStore{client: client, key: key, log: log}, nil
}

func (s *redisStore) Load(ctx context.Context) (Cursors, error) {
	m, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Cursors{}, err
	}
	return decodeRedisHash(m)
}

func decodeRedisHash(m map[string]string) (Cursors, error) {
	if len(m) == 0 {
		return Cursors{}, ErrNoState
	}
	var c Cursors
	var err error
	if c.Contact, err = strconv.ParseInt(m[redisFieldContact], 10, 64); err != nil {
		return Cursors{}, fmt.Errorf("field %s: %w: %w", redisFieldContact, ErrCorruptState, err)
	}
	if c.Service, err = strconv.ParseInt(m[redisFieldService], 10, 64); err != nil {
		return Cursors{}, fmt.Errorf("field %s: %w: %w", redisFieldService, ErrCorruptState, err)
	}
	return c, nil
}

func (s *redisStore) Save(ctx context.Context, c Cursors) error {
	return s.client.HSet(ctx, s.key, redisFieldContact, c.Contact, redisFieldService, c.Service).Err()
}

func (s *redisStore) Close() error { return s.client.Close() }
