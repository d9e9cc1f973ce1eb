package kv

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implementa Client sobre go-cache.
// Take toma el mutex para que get+delete sea atómico respecto de otros Take.
type memoryClient struct {
	prefix string
	c      *gocache.Cache
	mu     sync.Mutex
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory crea un cliente en memoria. Las entradas expiradas se purgan cada minuto.
func NewMemory(prefix string) *memoryClient {
	return &memoryClient{
		prefix: prefix,
		c:      gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (m *memoryClient) key(k string) string { return namespaced(m.prefix, k) }

// go-cache interpreta 0 como "TTL por defecto"; acá 0 es "no expira".
func ttlOf(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (m *memoryClient) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		m.misses.Add(1)
		return nil, ErrNotFound
	}
	m.hits.Add(1)
	return cloneBytes(v.([]byte)), nil
}

func (m *memoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Set(m.key(key), cloneBytes(value), ttlOf(ttl))
	return nil
}

func (m *memoryClient) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Delete(m.key(key))
	return nil
}

func (m *memoryClient) Take(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.key(key)
	v, ok := m.c.Get(k)
	if !ok {
		m.misses.Add(1)
		return nil, ErrNotFound
	}
	m.c.Delete(k)
	m.hits.Add(1)
	return v.([]byte), nil
}

func (m *memoryClient) Keys(_ context.Context, prefix string) ([]string, error) {
	full := m.key(prefix)
	var out []string
	// Items() ya filtra las expiradas
	for k := range m.c.Items() {
		if strings.HasPrefix(k, full) {
			out = append(out, stripNamespace(m.prefix, k))
		}
	}
	return out, nil
}

func (m *memoryClient) Ping(context.Context) error { return nil }

func (m *memoryClient) Close() error {
	m.c.Flush()
	return nil
}

func (m *memoryClient) Stats(context.Context) (Stats, error) {
	return Stats{
		Driver: "memory",
		Keys:   int64(m.c.ItemCount()),
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
	}, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
