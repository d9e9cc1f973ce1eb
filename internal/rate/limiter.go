// Package rate implementa un rate limiter fixed-window con backend Redis o memoria.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Config del limiter. Max <= 0 o Window <= 0 deshabilitan el límite.
type Config struct {
	Max    int
	Window time.Duration
	Prefix string
}

func (c Config) enabled() bool { return c.Max > 0 && c.Window > 0 }

// New devuelve un RedisLimiter si hay cliente, si no uno en memoria.
// Devuelve nil si la config no habilita el límite.
func New(cfg Config, client *rdb.Client) Limiter {
	if !cfg.enabled() {
		return nil
	}
	if client != nil {
		return NewRedisLimiter(client, cfg.Prefix, cfg.Max, cfg.Window)
	}
	return NewMemoryLimiter(cfg.Max, cfg.Window)
}

// RedisLimiter: fixed window sencillo (INCR + EXPIRE NX en la misma transacción)
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	winStart := time.Now().UTC().Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, sanitizeKey(key), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.Window)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	window := ttl.Val()
	if window < 0 {
		window = l.Window
	}
	return evaluate(incr.Val(), l.Max, window), nil
}

func evaluate(hits, max int64, ttl time.Duration) Result {
	remaining := max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     hits <= max,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !res.Allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = ttl
		if res.RetryAfter < time.Second {
			res.RetryAfter = time.Second
		}
	}
	return res
}

func sanitizeKey(k string) string { return strings.ReplaceAll(k, " ", "_") }
