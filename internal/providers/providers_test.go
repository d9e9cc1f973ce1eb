package providers

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse(" TikTok ")
	require.NoError(t, err)
	assert.Equal(t, TikTok, p)

	_, err = Parse("myspace")
	require.ErrorIs(t, err, ErrUnknownProvider)
	assert.Len(t, All(), 5)
}

func TestHandle(t *testing.T) {
	assert.Equal(t, "@ana_dev", Handle("ana_dev"))
	assert.Equal(t, "@ana_dev", Handle("@ana_dev"))
	assert.Equal(t, "", Handle(""))
	assert.Equal(t, (&Account{Username: Handle("ana_dev"), DisplayName: "Ana"}).Label(), Handle("ana_dev"))
}

func TestTopContent_SortedDescendingAndCapped(t *testing.T) {
	var items []ContentItem
	for _, e := range []int64{10, 50, 5, 90, 20, 1} {
		items = append(items, ContentItem{Likes: e})
	}
	total := SumEngagements(items)
	assert.Equal(t, int64(176), total)

	top := TopContent(items, TopContentLimit)
	got := make([]int64, 0, len(top))
	for _, it := range top {
		got = append(got, it.Engagements)
	}
	assert.Equal(t, []int64{90, 50, 20, 10, 5}, got)
	assert.Equal(t, int64(10), items[0].Engagements, "input order untouched")
}

func TestEngagementRate_ZeroDenominators(t *testing.T) {
	r := EngagementRate(120, 4, 0)
	assert.Equal(t, 0.0, r)
	assert.False(t, math.IsNaN(r))
	assert.Equal(t, 0.0, EngagementRate(0, 0, 1000))
	assert.Equal(t, 0.0, ViewRate(50, 0))
}

func TestEngagementRate_Rounded(t *testing.T) {
	// (30/3)/300*100 = 3.333...
	assert.Equal(t, 3.33, EngagementRate(30, 3, 300))
	assert.Equal(t, 12.5, ViewRate(25, 200))
}

func TestUpstreamErrorMatching(t *testing.T) {
	err := Rejected(LinkedIn, 401, "LinkedIn token expired or invalid")
	assert.True(t, errors.Is(err, ErrUpstreamRejected))
	assert.False(t, errors.Is(err, ErrUpstreamUnreachable))
	assert.Equal(t, "LinkedIn token expired or invalid", UserMessage(err))

	err = Unreachable(Twitter, errors.New("dial tcp: timeout"))
	assert.True(t, errors.Is(err, ErrUpstreamUnreachable))
	assert.Equal(t, "Twitter is unreachable", UserMessage(err))
}

type stubAdapter struct {
	p   Provider
	cfg Config
}

func (s *stubAdapter) Provider() Provider { return s.p }

func (s *stubAdapter) Configured() bool { return s.cfg.Configured() }

func (s *stubAdapter) PrepareState() (map[string]string, error) { return nil, nil }

func (s *stubAdapter) AuthorizeURL(string, map[string]string) (string, error) {
	return "", nil
}

func (s *stubAdapter) Exchange(_ context.Context, _ string, _ map[string]string) (*TokenSet, error) {
	return nil, nil
}

func (s *stubAdapter) Profile(context.Context, *TokenSet) (*Account, error) { return nil, nil }

func (s *stubAdapter) FetchAnalytics(context.Context, Credential) (*Analytics, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	factory := func(p Provider) Factory {
		return func(cfg Config) (Adapter, error) { return &stubAdapter{p: p, cfg: cfg}, nil }
	}
	require.NoError(t, r.Register(Twitter, factory(Twitter), Config{ClientID: "a", ClientSecret: "b"}))
	require.NoError(t, r.Register(TikTok, factory(TikTok), Config{}))
	require.Error(t, r.Register(Facebook, factory(Instagram), Config{}))

	a, err := r.Get(Twitter)
	require.NoError(t, err)
	assert.True(t, a.Configured())

	_, err = r.Get(LinkedIn)
	require.ErrorIs(t, err, ErrUnknownProvider)
	assert.Equal(t, []Provider{Twitter}, r.Configured())
}
