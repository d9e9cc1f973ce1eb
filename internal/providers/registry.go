package providers

import (
	"fmt"
	"sync"
)

// Factory creates an adapter from its config.
type Factory func(cfg Config) (Adapter, error)

// Registry maps each Provider to its adapter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Provider]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Provider]Adapter)}
}

// Register builds the adapter for p with factory and stores it,
// replacing any previous one.
func (r *Registry) Register(p Provider, factory Factory, cfg Config) error {
	a, err := factory(cfg)
	if err != nil {
		return fmt.Errorf("failed to create adapter %s: %w", p, err)
	}
	if a.Provider() != p {
		return fmt.Errorf("adapter for %s reports provider %s", p, a.Provider())
	}
	r.Set(a)
	return nil
}

// Set stores an already built adapter.
func (r *Registry) Set(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Provider()] = a
}

// Get returns the adapter for p.
func (r *Registry) Get(p Provider) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, p)
	}
	return a, nil
}

// Configured lists providers whose adapters have credentials, in All() order.
func (r *Registry) Configured() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Provider
	for _, p := range all {
		if a, ok := r.adapters[p]; ok && a.Configured() {
			out = append(out, p)
		}
	}
	return out
}
