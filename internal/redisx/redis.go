// Package redisx opens the optional Redis client used for shared sessions
// and the distributed rate limit.
package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"configtree/internal/config"
	"configtree/internal/logx"
)

var redisLogger = logx.GetScope("redis")

// Client is an alias for a Redis client
type Client = redis.Client

// Open creates a Redis client from configuration. It returns a nil client
// when no address is configured.
func Open(cfg *config.Config) (*Client, func(), error) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, func() {}, err
	}
	redisLogger.Info("redis connected", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
	closer := func() { _ = rdb.Close() }
	return rdb, closer, nil
}
