package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/crm-backoffice/internal/infrastructure/ratelimit"
)

// ──────────────────────────────────────────────────────────────────────────────
// MemoryLimiter
// ──────────────────────────────────────────────────────────────────────────────

func TestMemoryLimiter_PermiteHastaElLimite(t *testing.T) {
	l := ratelimit.NewMemoryLimiter(ratelimit.Config{RequestsPerWindow: 3, WindowDuration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, ok, "petición %d debe pasar", i+1)
	}
	ok, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok, "la cuarta petición excede la ventana")
}

func TestMemoryLimiter_ClavesIndependientes(t *testing.T) {
	l := ratelimit.NewMemoryLimiter(ratelimit.Config{RequestsPerWindow: 1, WindowDuration: time.Minute})
	ctx := context.Background()

	ok, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Allow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, ok, "el contador de una clave no afecta a otra")

	ok, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLimiter_VentanaVencidaReinicia(t *testing.T) {
	l := ratelimit.NewMemoryLimiter(ratelimit.Config{RequestsPerWindow: 1, WindowDuration: 10 * time.Millisecond})
	ctx := context.Background()

	ok, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok, "vencida la ventana, el contador arranca de cero")
}

// ──────────────────────────────────────────────────────────────────────────────
// RedisLimiter
// ──────────────────────────────────────────────────────────────────────────────

func newRedisLimiter(t *testing.T, cfg ratelimit.Config) (*ratelimit.RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ratelimit.NewRedisLimiter(client, cfg, "test"), mr
}

func TestRedisLimiter_PermiteHastaElLimite(t *testing.T) {
	l, _ := newRedisLimiter(t, ratelimit.Config{RequestsPerWindow: 2, WindowDuration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLimiter_VentanaExpiraEnRedis(t *testing.T) {
	l, mr := newRedisLimiter(t, ratelimit.Config{RequestsPerWindow: 1, WindowDuration: time.Minute})
	ctx := context.Background()

	ok, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok, "expirada la clave, la ventana arranca de nuevo")
}

func TestRedisLimiter_ErrorDeRedisSePropaga(t *testing.T) {
	l, mr := newRedisLimiter(t, ratelimit.Config{RequestsPerWindow: 1, WindowDuration: time.Minute})
	mr.Close()

	ok, err := l.Allow(context.Background(), "user-1")
	require.Error(t, err, "el caller decide si falla abierto o cerrado")
	assert.False(t, ok)
}
