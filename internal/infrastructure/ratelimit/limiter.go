// Package ratelimit ofrece limitación de tasa para los chequeos de permisos.
// Hay dos implementaciones: Redis (compartida entre instancias) y memoria
// (para desarrollo y despliegues de una sola instancia).
package ratelimit

import (
	"context"
	"time"
)

// Limiter decide si una clave puede ejecutar otra operación dentro de la ventana.
type Limiter interface {
	// Allow incrementa el contador de la clave y reporta si sigue bajo el límite.
	Allow(ctx context.Context, key string) (bool, error)
}

// Config parámetros de la ventana de limitación.
type Config struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// DefaultConfig ventana por defecto para los chequeos de acceso a módulos.
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: 120,
		WindowDuration:    time.Minute,
	}
}
