// Package health contiene los checks de liveness/readiness.
package health

import (
	"context"
	"time"

	"github.com/dropDatabas3/socialpulse/internal/kv"
	"github.com/dropDatabas3/socialpulse/internal/providers"
)

// Deps contiene las dependencias del health service.
type Deps struct {
	KV        kv.Client
	Providers interface{ Configured() []providers.Provider }
	Version   string
}

// Report es el resultado de Ready.
type Report struct {
	Status     string   `json:"status"`
	Version    string   `json:"version,omitempty"`
	KV         string   `json:"kv"`
	KVDriver   string   `json:"kv_driver,omitempty"`
	KVKeys     int64    `json:"kv_keys,omitempty"`
	Configured []string `json:"configured_providers"`
	Error      string   `json:"error,omitempty"`
}

type HealthService interface {
	Ready(ctx context.Context) Report
}

type healthService struct {
	deps Deps
}

func NewHealthService(d Deps) HealthService { return &healthService{deps: d} }

// Ready hace ping al KV con un timeout corto.
func (s *healthService) Ready(ctx context.Context) Report {
	rep := Report{Status: "ok", KV: "ok", Version: s.deps.Version, Configured: []string{}}
	if s.deps.Providers != nil {
		for _, p := range s.deps.Providers.Configured() {
			rep.Configured = append(rep.Configured, p.String())
		}
	}

	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.deps.KV.Ping(cctx); err != nil {
		rep.Status = "degraded"
		rep.KV = "down"
		rep.Error = err.Error()
		return rep
	}
	if st, err := s.deps.KV.Stats(cctx); err == nil {
		rep.KVDriver = st.Driver
		rep.KVKeys = st.Keys
	}
	return rep
}

// Services agrupa los services del dominio health.
type Services struct {
	Health HealthService
}

func NewServices(d Deps) Services {
	return Services{Health: NewHealthService(d)}
}
