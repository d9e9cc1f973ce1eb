package kv

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	_, err := c.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "a", []byte(`{"x":1}`), 0))
	b, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(b))

	require.NoError(t, c.Delete(ctx, "a"))
	require.NoError(t, c.Delete(ctx, "a"))
	_, err = c.Get(ctx, "a")
	assert.True(t, IsNotFound(err))
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("ns")
	require.NoError(t, c.Set(ctx, "k", []byte("1"), 0))
	time.Sleep(5 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")
	require.NoError(t, c.Set(ctx, "k", []byte("1"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = c.Take(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_TakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")
	require.NoError(t, c.Set(ctx, "state", []byte(`"v"`), time.Minute))

	b, err := c.Take(ctx, "state")
	require.NoError(t, err)
	assert.Equal(t, `"v"`, string(b))

	_, err = c.Take(ctx, "state")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ConcurrentTakeHasOneWinner(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")
	require.NoError(t, c.Set(ctx, "state", []byte("1"), time.Minute))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Take(ctx, "state"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestMemory_KeysByPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("app")
	require.NoError(t, c.Set(ctx, "user:1:profile", []byte("{}"), 0))
	require.NoError(t, c.Set(ctx, "user:1:oauth:twitter", []byte("{}"), 0))
	require.NoError(t, c.Set(ctx, "user:10:profile", []byte("{}"), 0))
	require.NoError(t, c.Set(ctx, "oauth:state:x", []byte("{}"), time.Minute))

	keys, err := c.Keys(ctx, "user:1:")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"user:1:oauth:twitter", "user:1:profile"}, keys)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	type rec struct {
		Name string `json:"name"`
	}
	require.NoError(t, SetJSON(ctx, c, "r", rec{Name: "ana"}, 0))

	var got rec
	require.NoError(t, GetJSON(ctx, c, "r", &got))
	assert.Equal(t, "ana", got.Name)

	var taken rec
	require.NoError(t, TakeJSON(ctx, c, "r", &taken))
	assert.Equal(t, "ana", taken.Name)
	require.ErrorIs(t, GetJSON(ctx, c, "r", &got), ErrNotFound)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "etcd"})
	require.Error(t, err)
}

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, `user:a\*b\?:`, globEscape("user:a*b?:"))
}
