package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	base := time.Date(2024, 1, 1, 10, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return base }
	ctx := context.Background()

	r1, err := l.Allow(ctx, "1.2.3.4|/signup")
	require.NoError(t, err)
	assert.True(t, r1.Allowed)
	assert.EqualValues(t, 1, r1.Remaining)

	r2, _ := l.Allow(ctx, "1.2.3.4|/signup")
	assert.True(t, r2.Allowed)
	assert.EqualValues(t, 0, r2.Remaining)

	r3, _ := l.Allow(ctx, "1.2.3.4|/signup")
	assert.False(t, r3.Allowed)
	assert.Equal(t, 50*time.Second, r3.RetryAfter)

	other, _ := l.Allow(ctx, "5.6.7.8|/signup")
	assert.True(t, other.Allowed, "keys are independent")

	l.now = func() time.Time { return base.Add(time.Minute) }
	r4, _ := l.Allow(ctx, "1.2.3.4|/signup")
	assert.True(t, r4.Allowed, "new window resets the count")
}

func TestNew_Disabled(t *testing.T) {
	assert.Nil(t, New(Config{Max: 0, Window: time.Minute}, nil))
	assert.IsType(t, &MemoryLimiter{}, New(Config{Max: 5, Window: time.Minute}, nil))
}
