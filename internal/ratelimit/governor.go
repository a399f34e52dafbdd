// Package ratelimit enforces human-like minimum spacing between remote
// operations. Each operation kind keeps its own last-invocation time;
// joins and message reads pay a fixed minimum interval plus a uniform
// random jitter, while generic requests use a randomized interval in
// place of a fixed one.
package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"github.com/jobscout/telegram-job-crawler/internal/clock"
)

// Jitter bounds added after the fixed interval, per operation kind.
const (
	joinJitterMin = 500 * time.Millisecond
	joinJitterMax = 2 * time.Second
	readJitterMin = 100 * time.Millisecond
	readJitterMax = 500 * time.Millisecond
)

// Config holds the per-operation minimum intervals.
type Config struct {
	JoinInterval time.Duration
	ReadInterval time.Duration
	GenericMin   time.Duration
	GenericMax   time.Duration
}

// SleepFunc suspends for d or returns early with ctx.Err() when the
// context finishes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Governor throttles join, message-read, and generic operations.
// It is not safe for concurrent use; the scheduler invokes it from a
// single goroutine.
type Governor struct {
	cfg   Config
	clk   clock.Clock
	sleep SleepFunc
	rng   *rand.Rand

	lastJoin    time.Time
	lastRead    time.Time
	lastGeneric time.Time
}

// Option customizes a Governor, mainly for tests.
type Option func(*Governor)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(g *Governor) { g.clk = c }
}

// WithSleep replaces the blocking sleep implementation.
func WithSleep(s SleepFunc) Option {
	return func(g *Governor) { g.sleep = s }
}

// WithRand replaces the jitter source.
func WithRand(r *rand.Rand) Option {
	return func(g *Governor) { g.rng = r }
}

// New constructs a Governor with the given intervals.
func New(cfg Config, opts ...Option) *Governor {
	g := &Governor{
		cfg:   cfg,
		clk:   clock.System{},
		sleep: Sleep,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BeforeJoin blocks until a group join is permitted.
func (g *Governor) BeforeJoin(ctx context.Context) error {
	if err := g.waitRemainder(ctx, g.lastJoin, g.cfg.JoinInterval); err != nil {
		return err
	}
	if err := g.sleep(ctx, g.uniform(joinJitterMin, joinJitterMax)); err != nil {
		return err
	}
	g.lastJoin = g.clk.Now()
	return nil
}

// BeforeMessageRead blocks until a message read is permitted.
func (g *Governor) BeforeMessageRead(ctx context.Context) error {
	if err := g.waitRemainder(ctx, g.lastRead, g.cfg.ReadInterval); err != nil {
		return err
	}
	if err := g.sleep(ctx, g.uniform(readJitterMin, readJitterMax)); err != nil {
		return err
	}
	g.lastRead = g.clk.Now()
	return nil
}

// BeforeGenericRequest blocks until a generic API request is
// permitted. The interval itself is randomized; no extra jitter.
func (g *Governor) BeforeGenericRequest(ctx context.Context) error {
	interval := g.uniform(g.cfg.GenericMin, g.cfg.GenericMax)
	if err := g.waitRemainder(ctx, g.lastGeneric, interval); err != nil {
		return err
	}
	g.lastGeneric = g.clk.Now()
	return nil
}

// waitRemainder sleeps off whatever is left of interval since last.
func (g *Governor) waitRemainder(ctx context.Context, last time.Time, interval time.Duration) error {
	if last.IsZero() || interval <= 0 {
		return nil
	}
	elapsed := g.clk.Now().Sub(last)
	if elapsed >= interval {
		return nil
	}
	return g.sleep(ctx, interval-elapsed)
}

func (g *Governor) uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(g.rng.Int63n(int64(max-min)))
}
