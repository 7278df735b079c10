package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"followscan/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// ErrRedisDisabled is returned by a redis blob without a client
var ErrRedisDisabled = errors.New("redis storage is not connected")

// NewRedisStore stores the aggregate under DataKey. addr may be host:port or a redis:// URL.
func NewRedisStore(ctx context.Context, addr string, db int, log logger.Logger) (*AggregateStore, error) {
	var opt *redis.Options
	if u, err := redis.ParseURL(addr); err == nil {
		opt = u
	} else {
		opt = &redis.Options{Addr: addr, DB: db}
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.OrGlobal(log).InfoWithFields("Redis connection established", map[string]interface{}{
		"addr": opt.Addr,
		"db":   opt.DB,
	})
	return newAggregateStore(&redisBlob{client: client, key: DataKey}, log), nil
}

type redisBlob struct {
	client *redis.Client
	key    string
}

func (r *redisBlob) load(ctx context.Context) ([]byte, error) {
	if r == nil || r.client == nil {
		return nil, ErrRedisDisabled
	}
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

func (r *redisBlob) store(ctx context.Context, data []byte) error {
	if r == nil || r.client == nil {
		return ErrRedisDisabled
	}
	return r.client.Set(ctx, r.key, data, 0).Err()
}

func (r *redisBlob) remove(ctx context.Context) error {
	if r == nil || r.client == nil {
		return ErrRedisDisabled
	}
	return r.client.Del(ctx, r.key).Err()
}

func (r *redisBlob) close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
