package ratelimit

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

var _ Limiter = (*RedisLimiter)(nil)

// RedisLimiter limitador de ventana fija respaldado por Redis.
// El contador se comparte entre todas las instancias del API.
type RedisLimiter struct {
	client *redis.Client
	config Config
	prefix string
}

// NewRedisLimiter construye el limitador distribuido.
func NewRedisLimiter(client *redis.Client, config Config, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, config: config, prefix: prefix}
}

// Allow incrementa el contador de la clave de forma atómica (pipeline INCR+EXPIRE)
// y reporta si sigue bajo el límite de la ventana.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit redis: %w", err)
	}

	return incr.Val() <= int64(l.config.RequestsPerWindow), nil
}
