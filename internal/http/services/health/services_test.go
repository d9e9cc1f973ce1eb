package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dropDatabas3/socialpulse/internal/kv"
	"github.com/dropDatabas3/socialpulse/internal/providers"
)

type downKV struct{ kv.Client }

func (downKV) Ping(context.Context) error { return errors.New("connection refused") }

type staticProviders []providers.Provider

func (s staticProviders) Configured() []providers.Provider { return s }

func TestReady_OK(t *testing.T) {
	store := kv.NewMemory("")
	a := assert.New(t)
	a.NoError(store.Set(context.Background(), "k", []byte("v"), 0))

	rep := NewHealthService(Deps{KV: store, Providers: staticProviders{providers.TikTok}, Version: "1.2.3"}).Ready(context.Background())
	a.Equal("ok", rep.Status)
	a.Equal("ok", rep.KV)
	a.Equal("1.2.3", rep.Version)
	a.Equal([]string{"tiktok"}, rep.Configured)
	a.EqualValues(1, rep.KVKeys)
}

func TestReady_Degraded(t *testing.T) {
	rep := NewHealthService(Deps{KV: downKV{}}).Ready(context.Background())
	assert.Equal(t, "degraded", rep.Status)
	assert.Equal(t, "down", rep.KV)
	assert.Contains(t, rep.Error, "connection refused")
	assert.Equal(t, []string{}, rep.Configured)
}
