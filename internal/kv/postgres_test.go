package kv

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostgres_PurgeDueOncePerInterval(t *testing.T) {
	c := &pgClient{table: "kv_store", purgeInterval: time.Minute}
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, c.purgeDue(t0), "first write purges")
	assert.False(t, c.purgeDue(t0.Add(time.Second)))
	assert.False(t, c.purgeDue(t0.Add(59*time.Second)))
	assert.True(t, c.purgeDue(t0.Add(time.Minute)))
	assert.False(t, c.purgeDue(t0.Add(time.Minute+time.Second)))
}

func TestPostgres_PurgeDueSingleWinner(t *testing.T) {
	c := &pgClient{table: "kv_store", purgeInterval: time.Minute}
	now := time.Now()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.purgeDue(now) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, validIdentifier.MatchString("kv_store"))
	assert.False(t, validIdentifier.MatchString("kv; DROP TABLE users"))
	assert.False(t, validIdentifier.MatchString("KV"))
}
