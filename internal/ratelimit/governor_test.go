package ratelimit

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobscout/telegram-job-crawler/internal/clock"
)

// fakeClock advances only when told to.
type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

var _ clock.Clock = (*fakeClock)(nil)

// recordingSleep captures every requested sleep and advances the fake
// clock in its place.
func recordingSleep(clk *fakeClock, out *[]time.Duration) SleepFunc {
	return func(_ context.Context, d time.Duration) error {
		*out = append(*out, d)
		clk.now = clk.now.Add(d)
		return nil
	}
}

func TestBeforeJoinFirstCallOnlyJitters(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	var slept []time.Duration
	g := New(Config{JoinInterval: 90 * time.Second},
		WithClock(clk),
		WithSleep(recordingSleep(clk, &slept)),
		WithRand(rand.New(rand.NewSource(1))),
	)

	require.NoError(t, g.BeforeJoin(context.Background()))
	require.Len(t, slept, 1)
	assert.GreaterOrEqual(t, slept[0], joinJitterMin)
	assert.Less(t, slept[0], joinJitterMax)
}

func TestBeforeJoinEnforcesMinimumSpacing(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	var slept []time.Duration
	g := New(Config{JoinInterval: 90 * time.Second},
		WithClock(clk),
		WithSleep(recordingSleep(clk, &slept)),
		WithRand(rand.New(rand.NewSource(1))),
	)

	require.NoError(t, g.BeforeJoin(context.Background()))
	stamp := clk.now

	// Ten seconds later the second join still owes the remainder of
	// the 90s interval plus fresh jitter.
	clk.now = clk.now.Add(10 * time.Second)
	slept = nil
	require.NoError(t, g.BeforeJoin(context.Background()))
	require.Len(t, slept, 2)
	assert.Equal(t, 80*time.Second, slept[0])
	assert.GreaterOrEqual(t, slept[1], joinJitterMin)
	assert.Less(t, slept[1], joinJitterMax)
	assert.True(t, clk.now.After(stamp))
}

func TestBeforeJoinElapsedIntervalSkipsWait(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	var slept []time.Duration
	g := New(Config{JoinInterval: 90 * time.Second},
		WithClock(clk),
		WithSleep(recordingSleep(clk, &slept)),
		WithRand(rand.New(rand.NewSource(1))),
	)

	require.NoError(t, g.BeforeJoin(context.Background()))
	clk.now = clk.now.Add(2 * time.Hour)
	slept = nil
	require.NoError(t, g.BeforeJoin(context.Background()))
	require.Len(t, slept, 1) // jitter only
	assert.Less(t, slept[0], joinJitterMax)
}

func TestBeforeMessageReadJitterBounds(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	var slept []time.Duration
	g := New(Config{ReadInterval: 5 * time.Second},
		WithClock(clk),
		WithSleep(recordingSleep(clk, &slept)),
		WithRand(rand.New(rand.NewSource(7))),
	)

	for i := 0; i < 20; i++ {
		require.NoError(t, g.BeforeMessageRead(context.Background()))
	}
	for _, d := range slept {
		if d >= 5*time.Second {
			continue // interval remainder, not jitter
		}
		assert.GreaterOrEqual(t, d, readJitterMin)
		assert.Less(t, d, readJitterMax)
	}
}

func TestBeforeGenericRequestRandomizedInterval(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	var slept []time.Duration
	g := New(Config{GenericMin: 1 * time.Second, GenericMax: 3 * time.Second},
		WithClock(clk),
		WithSleep(recordingSleep(clk, &slept)),
		WithRand(rand.New(rand.NewSource(3))),
	)

	// Back-to-back calls with no clock movement between them owe the
	// full randomized interval each time.
	require.NoError(t, g.BeforeGenericRequest(context.Background()))
	assert.Empty(t, slept) // nothing owed on first call

	for i := 0; i < 10; i++ {
		slept = nil
		require.NoError(t, g.BeforeGenericRequest(context.Background()))
		require.Len(t, slept, 1)
		assert.GreaterOrEqual(t, slept[0], time.Duration(0))
		assert.Less(t, slept[0], 3*time.Second)
	}
}

func TestGovernorHonorsContextCancellation(t *testing.T) {
	g := New(Config{JoinInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.BeforeJoin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepZeroAndNegativeReturnImmediately(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))
	require.NoError(t, Sleep(context.Background(), -time.Second))
}
