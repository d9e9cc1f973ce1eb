// Package kv es el almacenamiento clave/valor del servicio.
//
// Soporta tres backends intercambiables:
//   - memory (go-cache, in-process; desarrollo y tests)
//   - redis (distribuido; GETDEL para consumo atómico)
//   - postgres (tabla kv_store; DELETE ... RETURNING para consumo atómico)
//
// Los valores son bytes opacos; el paquete store serializa JSON encima.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Client define las operaciones de almacenamiento.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set guarda un valor. ttl == 0 significa sin expiración.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete elimina una key. Borrar una key inexistente no es error.
	Delete(ctx context.Context, key string) error

	// Take obtiene y elimina una key en una sola operación atómica.
	// Entre N llamadas concurrentes sobre la misma key, a lo sumo una
	// obtiene el valor; el resto recibe ErrNotFound.
	Take(ctx context.Context, key string) ([]byte, error)

	// Keys lista las keys vigentes que empiezan con prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
	Stats(ctx context.Context) (Stats, error)
}

// Stats contiene estadísticas del backend.
type Stats struct {
	Driver string
	Keys   int64
	Hits   int64
	Misses int64
}

// Config configuración para crear un cliente.
type Config struct {
	Driver string // "memory" | "redis" | "postgres"
	Prefix string // namespace para todas las keys (redis/memory)

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN   string
	PostgresTable string
}

// ErrNotFound se retorna cuando la key no existe o ya expiró.
var ErrNotFound = errors.New("kv: key not found")

// IsNotFound es un atajo para errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// New crea un cliente según cfg.Driver.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemory(cfg.Prefix), nil
	case "redis":
		return NewRedis(ctx, cfg)
	case "postgres", "pg":
		return NewPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", cfg.Driver)
	}
}

// GetJSON lee key y la decodifica en dst.
func GetJSON(ctx context.Context, c Client, key string, dst any) error {
	b, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return nil
}

// SetJSON codifica v y lo guarda en key.
func SetJSON(ctx context.Context, c Client, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return c.Set(ctx, key, b, ttl)
}

// TakeJSON consume key (ver Client.Take) y la decodifica en dst.
func TakeJSON(ctx context.Context, c Client, key string, dst any) error {
	b, err := c.Take(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return nil
}

func namespaced(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}

func stripNamespace(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return strings.TrimPrefix(k, prefix+":")
}
