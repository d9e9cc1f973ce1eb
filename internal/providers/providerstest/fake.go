// Package providerstest provides a scriptable providers.Adapter for tests.
package providerstest

import (
	"context"
	"net/url"
	"sync/atomic"

	"github.com/dropDatabas3/socialpulse/internal/providers"
)

// Adapter is a providers.Adapter whose behavior is set through its func
// fields. Nil funcs return canned values.
type Adapter struct {
	P            providers.Provider
	Unconfigured bool

	ExtraFn     func() (map[string]string, error)
	ExchangeFn  func(ctx context.Context, code string, extra map[string]string) (*providers.TokenSet, error)
	ProfileFn   func(ctx context.Context, t *providers.TokenSet) (*providers.Account, error)
	AnalyticsFn func(ctx context.Context, cred providers.Credential) (*providers.Analytics, error)

	Exchanges atomic.Int32
	Fetches   atomic.Int32
}

var _ providers.Adapter = (*Adapter)(nil)

func New(p providers.Provider) *Adapter { return &Adapter{P: p} }

func (a *Adapter) Provider() providers.Provider { return a.P }

func (a *Adapter) Configured() bool { return !a.Unconfigured }

func (a *Adapter) PrepareState() (map[string]string, error) {
	if a.ExtraFn != nil {
		return a.ExtraFn()
	}
	return nil, nil
}

func (a *Adapter) AuthorizeURL(state string, _ map[string]string) (string, error) {
	q := url.Values{"state": {state}, "client_id": {"test-client"}}
	return "https://auth.example.com/" + a.P.String() + "?" + q.Encode(), nil
}

func (a *Adapter) Exchange(ctx context.Context, code string, extra map[string]string) (*providers.TokenSet, error) {
	a.Exchanges.Add(1)
	if a.ExchangeFn != nil {
		return a.ExchangeFn(ctx, code, extra)
	}
	return &providers.TokenSet{AccessToken: "at-" + code, RefreshToken: "rt-" + code, ExpiresIn: 3600}, nil
}

func (a *Adapter) Profile(ctx context.Context, t *providers.TokenSet) (*providers.Account, error) {
	if a.ProfileFn != nil {
		return a.ProfileFn(ctx, t)
	}
	return &providers.Account{ID: "acct-1", Username: a.P.String() + "_user"}, nil
}

func (a *Adapter) FetchAnalytics(ctx context.Context, cred providers.Credential) (*providers.Analytics, error) {
	a.Fetches.Add(1)
	if a.AnalyticsFn != nil {
		return a.AnalyticsFn(ctx, cred)
	}
	return &providers.Analytics{Provider: a.P, Connected: true, Username: cred.Username, TopContent: []providers.ContentItem{}}, nil
}

// Registry returns a registry with a fake adapter for every provider.
func Registry() (*providers.Registry, map[providers.Provider]*Adapter) {
	reg := providers.NewRegistry()
	fakes := make(map[providers.Provider]*Adapter)
	for _, p := range providers.All() {
		f := New(p)
		fakes[p] = f
		reg.Set(f)
	}
	return reg, fakes
}
