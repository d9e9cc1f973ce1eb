package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es la variante de un solo proceso (dev/tests) con go-cache.
type MemoryLimiter struct {
	mu     sync.Mutex
	cache  *gocache.Cache
	Max    int64
	Window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		cache:  gocache.New(window, 2*window),
		Max:    int64(max),
		Window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.Window)
	k := fmt.Sprintf("%s:%d", sanitizeKey(key), winStart.Unix())

	l.mu.Lock()
	defer l.mu.Unlock()

	// Add falla si ya existe: en ese caso sólo incrementamos.
	_ = l.cache.Add(k, int64(0), l.Window)
	hits, err := l.cache.IncrementInt64(k, 1)
	if err != nil {
		return Result{}, err
	}
	return evaluate(hits, l.Max, winStart.Add(l.Window).Sub(now)), nil
}
