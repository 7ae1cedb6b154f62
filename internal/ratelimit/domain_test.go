package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when something sleeps or the test moves it
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSameHostIsSpaced(t *testing.T) {
	clock := newFakeClock()
	limiter := NewDomainLimiter(12*time.Second, clock)
	ctx := context.Background()

	waited, err := limiter.Wait(ctx, "www.kabum.com.br")
	require.NoError(t, err)
	assert.Zero(t, waited)
	first, _ := limiter.LastRequest("www.kabum.com.br")

	// fetching takes 3 seconds
	clock.Advance(3 * time.Second)

	waited, err = limiter.Wait(ctx, "www.kabum.com.br")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Second, waited)
	second, _ := limiter.LastRequest("www.kabum.com.br")

	assert.GreaterOrEqual(t, second.Sub(first), 12*time.Second)
}

func TestDifferentHostsDoNotWait(t *testing.T) {
	clock := newFakeClock()
	limiter := NewDomainLimiter(12*time.Second, clock)
	ctx := context.Background()

	_, err := limiter.Wait(ctx, "www.kabum.com.br")
	require.NoError(t, err)
	waited, err := limiter.Wait(ctx, "www.pichau.com.br")
	require.NoError(t, err)

	assert.Zero(t, waited)
	assert.Empty(t, clock.slept)
}

func TestNoWaitAfterSpacingElapsed(t *testing.T) {
	clock := newFakeClock()
	limiter := NewDomainLimiter(12*time.Second, clock)
	ctx := context.Background()

	_, _ = limiter.Wait(ctx, "www.terabyteshop.com.br")
	clock.Advance(20 * time.Second)

	waited, err := limiter.Wait(ctx, "www.terabyteshop.com.br")
	require.NoError(t, err)
	assert.Zero(t, waited)
}

func TestWaitHonorsCancellation(t *testing.T) {
	limiter := NewDomainLimiter(time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := limiter.Wait(ctx, "example.com")
	require.NoError(t, err)

	cancel()
	_, err = limiter.Wait(ctx, "example.com")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLimitersAreIndependent(t *testing.T) {
	clock := newFakeClock()
	ctx := context.Background()

	runA := NewDomainLimiter(12*time.Second, clock)
	_, _ = runA.Wait(ctx, "example.com")

	runB := NewDomainLimiter(12*time.Second, clock)
	waited, err := runB.Wait(ctx, "example.com")
	require.NoError(t, err)
	assert.Zero(t, waited)
}
