package ratelimit

import (
	"context"
	"sync"
	"time"
)

var _ Limiter = (*MemoryLimiter)(nil)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter limitador de ventana fija en memoria del proceso.
// Suficiente para una sola instancia; no comparte estado entre réplicas.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	config  Config
}

// NewMemoryLimiter construye el limitador en memoria.
func NewMemoryLimiter(config Config) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		config:  config,
	}
}

// Allow incrementa el contador de la clave y reporta si sigue bajo el límite.
// Las ventanas vencidas se reinician al tocarlas.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.config.WindowDuration)}
		return l.config.RequestsPerWindow >= 1, nil
	}

	w.count++
	return w.count <= l.config.RequestsPerWindow, nil
}
