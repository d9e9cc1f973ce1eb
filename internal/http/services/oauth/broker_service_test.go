package oauth

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/dropDatabas3/socialpulse/internal/http/dto/oauth"
	"github.com/dropDatabas3/socialpulse/internal/identity"
	"github.com/dropDatabas3/socialpulse/internal/kv"
	"github.com/dropDatabas3/socialpulse/internal/notify"
	"github.com/dropDatabas3/socialpulse/internal/providers"
	"github.com/dropDatabas3/socialpulse/internal/providers/providerstest"
	"github.com/dropDatabas3/socialpulse/internal/repository"
)

var user = &identity.UserIdentity{ID: "user-1", Email: "ana@example.com"}

type fixture struct {
	svc   BrokerService
	store kv.Client
	repo  *repository.Repository
	fakes map[providers.Provider]*providerstest.Adapter
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()
	store := kv.NewMemory("")
	repo := repository.New(store, nil)
	reg, fakes := providerstest.Registry()
	svc := NewBrokerService(Deps{
		Store:    repo,
		Adapters: reg,
		StateTTL: ttl,
		Now:      func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	})
	return &fixture{svc: svc, store: store, repo: repo, fakes: fakes}
}

func (f *fixture) initiate(t *testing.T, p providers.Provider) string {
	t.Helper()
	res, err := f.svc.Initiate(context.Background(), user, p.String())
	require.NoError(t, err)
	u, err := url.Parse(res.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, res.State, u.Query().Get("state"))
	return res.State
}

func (f *fixture) credentialKeys(t *testing.T) []string {
	t.Helper()
	keys, err := f.store.Keys(context.Background(), "user:"+user.ID+":oauth:")
	require.NoError(t, err)
	return keys
}

func TestInitiate_NotConfigured(t *testing.T) {
	f := newFixture(t, 0)
	f.fakes[providers.TikTok].Unconfigured = true

	_, err := f.svc.Initiate(context.Background(), user, "tiktok")
	assert.ErrorIs(t, err, providers.ErrNotConfigured)
}

func TestInitiate_UnknownProvider(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.svc.Initiate(context.Background(), user, "myspace")
	assert.ErrorIs(t, err, providers.ErrUnknownProvider)
}

func TestInitiate_PersistsExtra(t *testing.T) {
	f := newFixture(t, 0)
	f.fakes[providers.Twitter].ExtraFn = func() (map[string]string, error) {
		return map[string]string{"code_verifier": "v"}, nil
	}
	var got map[string]string
	f.fakes[providers.Twitter].ExchangeFn = func(_ context.Context, code string, extra map[string]string) (*providers.TokenSet, error) {
		got = extra
		return &providers.TokenSet{AccessToken: "at"}, nil
	}

	state := f.initiate(t, providers.Twitter)
	msg := f.svc.Callback(context.Background(), dto.CallbackRequest{Provider: "twitter", Code: "c", State: state})
	require.True(t, msg.OK(), msg.Error)
	assert.Equal(t, "v", got["code_verifier"])
}

func TestCallback_SignupThenFirstConnect(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	state := f.initiate(t, providers.Instagram)

	msg := f.svc.Callback(ctx, dto.CallbackRequest{Provider: "instagram", Code: "abc", State: state})
	assert.Equal(t, notify.TypeSuccess, msg.Type)
	assert.Equal(t, "instagram_user", msg.Username)

	cred, err := f.repo.GetCredential(ctx, user.ID, providers.Instagram)
	require.NoError(t, err)
	assert.Equal(t, "at-abc", cred.AccessToken)
	require.NotNil(t, cred.ExpiresAt)

	st, err := f.svc.Status(ctx, user)
	require.NoError(t, err)
	require.Len(t, st.Status, 5)
	for _, p := range providers.All() {
		assert.Equal(t, p == providers.Instagram, st.Status[p.String()].Connected, p)
	}
	assert.Equal(t, "instagram_user", st.Status["instagram"].Username)
}

func TestCallback_ProviderDenialWritesNothing(t *testing.T) {
	f := newFixture(t, 0)
	state := f.initiate(t, providers.Facebook)

	msg := f.svc.Callback(context.Background(), dto.CallbackRequest{
		Provider: "facebook", State: state, Error: "access_denied",
	})
	assert.Equal(t, notify.TypeError, msg.Type)
	assert.Equal(t, "access_denied", msg.Error)
	assert.Empty(t, f.credentialKeys(t))
	assert.EqualValues(t, 0, f.fakes[providers.Facebook].Exchanges.Load())
}

func TestCallback_MissingParams(t *testing.T) {
	f := newFixture(t, 0)
	msg := f.svc.Callback(context.Background(), dto.CallbackRequest{Provider: "facebook", Code: "x"})
	assert.Equal(t, MsgMissingParams, msg.Error)
}

func TestCallback_InvalidStateIsUniform(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	forged := f.svc.Callback(ctx, dto.CallbackRequest{Provider: "linkedin", Code: "c", State: "forged"})

	state := f.initiate(t, providers.LinkedIn)
	first := f.svc.Callback(ctx, dto.CallbackRequest{Provider: "linkedin", Code: "c", State: state})
	require.True(t, first.OK())
	replayed := f.svc.Callback(ctx, dto.CallbackRequest{Provider: "linkedin", Code: "c", State: state})

	other := f.initiate(t, providers.Twitter)
	crossed := f.svc.Callback(ctx, dto.CallbackRequest{Provider: "linkedin", Code: "c", State: other})

	for _, m := range []notify.Message{forged, replayed, crossed} {
		assert.Equal(t, notify.TypeError, m.Type)
		assert.Equal(t, MsgInvalidState, m.Error)
	}
}

func TestCallback_ExpiredState(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	state := f.initiate(t, providers.TikTok)
	time.Sleep(60 * time.Millisecond)

	msg := f.svc.Callback(context.Background(), dto.CallbackRequest{Provider: "tiktok", Code: "c", State: state})
	assert.Equal(t, MsgInvalidState, msg.Error)
	assert.EqualValues(t, 0, f.fakes[providers.TikTok].Exchanges.Load())
}

func TestCallback_ConcurrentReplay(t *testing.T) {
	f := newFixture(t, 0)
	state := f.initiate(t, providers.Twitter)

	const n = 16
	var wg sync.WaitGroup
	results := make([]notify.Message, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.svc.Callback(context.Background(), dto.CallbackRequest{Provider: "twitter", Code: "c", State: state})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, m := range results {
		if m.OK() {
			ok++
		} else {
			assert.Equal(t, MsgInvalidState, m.Error)
		}
	}
	assert.Equal(t, 1, ok)
	assert.EqualValues(t, 1, f.fakes[providers.Twitter].Exchanges.Load())
}

func TestCallback_ExchangeRejected(t *testing.T) {
	f := newFixture(t, 0)
	f.fakes[providers.Facebook].ExchangeFn = func(context.Context, string, map[string]string) (*providers.TokenSet, error) {
		return nil, providers.Rejected(providers.Facebook, 400, "This authorization code has expired.")
	}
	state := f.initiate(t, providers.Facebook)

	msg := f.svc.Callback(context.Background(), dto.CallbackRequest{Provider: "facebook", Code: "c", State: state})
	assert.Equal(t, "This authorization code has expired.", msg.Error)
	assert.Empty(t, f.credentialKeys(t))

	// the state is gone; the user must initiate again
	again := f.svc.Callback(context.Background(), dto.CallbackRequest{Provider: "facebook", Code: "c", State: state})
	assert.Equal(t, MsgInvalidState, again.Error)
}

func TestCallback_ProfileFailureIsGeneric(t *testing.T) {
	f := newFixture(t, 0)
	f.fakes[providers.LinkedIn].ProfileFn = func(context.Context, *providers.TokenSet) (*providers.Account, error) {
		return nil, errors.New("decode: unexpected EOF")
	}
	state := f.initiate(t, providers.LinkedIn)

	msg := f.svc.Callback(context.Background(), dto.CallbackRequest{Provider: "linkedin", Code: "c", State: state})
	assert.Equal(t, MsgCallbackFailed, msg.Error)
}

func TestDisconnect_Twice(t *testing.T) {
	ctx := context.Background()
	for _, p := range providers.All() {
		f := newFixture(t, 0)
		state := f.initiate(t, p)
		require.True(t, f.svc.Callback(ctx, dto.CallbackRequest{Provider: p.String(), Code: "c", State: state}).OK())

		require.NoError(t, f.svc.Disconnect(ctx, user, p.String()))
		require.NoError(t, f.svc.Disconnect(ctx, user, p.String()))

		_, err := f.repo.GetCredential(ctx, user.ID, p)
		assert.ErrorIs(t, err, providers.ErrNotConnected, p)
	}
}
