package stores

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisClient = redis.UniversalClient

// NewRC parses the uri and pings the server
func NewRC(redisURI string) (RedisClient, error) {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, err
	}
	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err = rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rc, nil
}

type redisKV struct {
	rc  RedisClient
	ttl time.Duration
}

// NewRedisKV stores items as plain string keys, which expire after ttl when it is positive.
func NewRedisKV(rc RedisClient, ttl time.Duration) KV {
	return &redisKV{rc: rc, ttl: ttl}
}

func (s *redisKV) GetItem(ctx context.Context, key string) (string, error) {
	v, err := s.rc.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoItem
	}
	return v, err
}

func (s *redisKV) SetItem(ctx context.Context, key, value string) error {
	err := s.rc.Set(ctx, key, value, s.ttl).Err()
	if err != nil {
		logger().Infow("redis set fail", "key", key, "err", err)
	}
	return err
}

func (s *redisKV) RemoveItem(ctx context.Context, key string) error {
	return s.rc.Del(ctx, key).Err()
}

func (s *redisKV) Close() error {
	return s.rc.Close()
}
