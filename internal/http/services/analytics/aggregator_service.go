package analytics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/socialpulse/internal/identity"
	"github.com/dropDatabas3/socialpulse/internal/metrics"
	"github.com/dropDatabas3/socialpulse/internal/observability/logger"
	"github.com/dropDatabas3/socialpulse/internal/providers"
)

// AggregatorService reads live analytics from provider APIs.
type AggregatorService interface {
	// Fetch returns one provider's analytics or a typed error
	// (ErrNotConnected, ErrNotConfigured, UpstreamError).
	Fetch(ctx context.Context, user *identity.UserIdentity, provider string) (*providers.Analytics, error)

	// FetchAll queries every provider concurrently and always returns five
	// entries. Provider failures are embedded, never returned.
	FetchAll(ctx context.Context, user *identity.UserIdentity) map[providers.Provider]*providers.Analytics
}

type aggregatorService struct {
	deps Deps
}

// NewAggregatorService creates an AggregatorService.
func NewAggregatorService(d Deps) AggregatorService {
	if d.ProviderTimeout <= 0 {
		d.ProviderTimeout = DefaultProviderTimeout
	}
	return &aggregatorService{deps: d}
}

func (s *aggregatorService) Fetch(ctx context.Context, user *identity.UserIdentity, provider string) (*providers.Analytics, error) {
	p, err := providers.Parse(provider)
	if err != nil {
		return nil, err
	}
	return s.fetchOne(ctx, user.ID, p)
}

func (s *aggregatorService) FetchAll(ctx context.Context, user *identity.UserIdentity) map[providers.Provider]*providers.Analytics {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("analytics.aggregator"), logger.Op("FetchAll"))

	all := providers.All()
	out := make(map[providers.Provider]*providers.Analytics, len(all))
	var mu sync.Mutex

	// Las goroutines nunca devuelven error: cada fallo queda en su entrada.
	var g errgroup.Group
	for _, p := range all {
		p := p
		g.Go(func() error {
			an, err := s.fetchOne(ctx, user.ID, p)
			if err != nil {
				an = entryForError(p, err)
				if !errors.Is(err, providers.ErrNotConnected) {
					log.Warn("provider fetch failed",
						logger.Provider(p.String()), logger.Outcome(outcome(err)), logger.Err(err))
				}
			}
			mu.Lock()
			out[p] = an
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// fetchOne bounds the whole provider call (credential read included) by
// ProviderTimeout. The adapter runs in its own goroutine so an adapter that
// ignores ctx still cannot hold the caller past the bound.
func (s *aggregatorService) fetchOne(ctx context.Context, userID string, p providers.Provider) (an *providers.Analytics, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProviderFetch(p.String(), outcome(err), time.Since(start)) }()

	cctx, cancel := context.WithTimeout(ctx, s.deps.ProviderTimeout)
	defer cancel()

	cred, err := s.deps.Credentials.GetCredential(cctx, userID, p)
	if err != nil {
		return nil, err
	}
	a, err := s.deps.Adapters.Get(p)
	if err != nil || a == nil || !a.Configured() {
		return nil, fmt.Errorf("%w: %s", providers.ErrNotConfigured, p)
	}

	type result struct {
		an  *providers.Analytics
		err error
	}
	ch := make(chan result, 1)
	go func() {
		r, ferr := a.FetchAnalytics(cctx, *cred)
		ch <- result{r, ferr}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if cctx.Err() != nil && !isUpstream(r.err) {
				return nil, providers.Unreachable(p, cctx.Err())
			}
			return nil, r.err
		}
		if r.an == nil {
			return nil, providers.Unreachable(p, errors.New("empty analytics"))
		}
		return finalize(p, r.an, cred), nil
	case <-cctx.Done():
		return nil, providers.Unreachable(p, cctx.Err())
	}
}

func finalize(p providers.Provider, an *providers.Analytics, cred *providers.Credential) *providers.Analytics {
	an.Provider = p
	an.Connected = true
	an.Error = ""
	if an.Username == "" {
		an.Username = cred.Username
	}
	if an.TopContent == nil {
		an.TopContent = []providers.ContentItem{}
	}
	return an
}

func entryForError(p providers.Provider, err error) *providers.Analytics {
	if errors.Is(err, providers.ErrNotConnected) {
		return providers.Disconnected(p)
	}
	return providers.Failed(p, providers.UserMessage(err))
}

func isUpstream(err error) bool {
	var ue *providers.UpstreamError
	return errors.As(err, &ue)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, providers.ErrNotConnected):
		return "not_connected"
	case errors.Is(err, providers.ErrUpstreamRejected):
		return "rejected"
	case errors.Is(err, providers.ErrUpstreamUnreachable):
		return "unreachable"
	}
	return "error"
}
