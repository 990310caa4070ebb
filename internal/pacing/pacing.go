// Package pacing spaces out browser actions with randomised, cancellable
// waits so the scraper moves at a human rate.
package pacing

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Window is a closed range of delays.
type Window struct {
	Min time.Duration
	Max time.Duration
}

// Seconds builds a Window from whole seconds.
func Seconds(lo, hi int) Window {
	return Window{Min: time.Duration(lo) * time.Second, Max: time.Duration(hi) * time.Second}
}

// Human is base plus up to spread, the per-scroll wait of the collector.
func Human(base, spread time.Duration) Window {
	return Window{Min: base, Max: base + spread}
}

// Valid reports whether the window is non-negative and ordered.
func (w Window) Valid() bool { return w.Min >= 0 && w.Max >= w.Min }

// Draw picks a delay in [Min, Max] using rnd, which returns a value in
// [0, n). A degenerate window returns Min.
func (w Window) Draw(rnd func(n int64) int64) time.Duration {
	span := int64(w.Max - w.Min)
	if span <= 0 {
		return max(w.Min, 0)
	}
	return w.Min + time.Duration(rnd(span+1))
}

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// Clock sleeps on real timers.
type Clock struct{}

func (Clock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pacer draws delays from windows and sleeps through a Sleeper.
type Pacer struct {
	sleeper Sleeper
	rnd     func(n int64) int64
	logger  *slog.Logger
}

// New returns a Pacer. A nil sleeper uses real timers; a nil logger uses
// slog.Default().
func New(sleeper Sleeper, logger *slog.Logger) *Pacer {
	if sleeper == nil {
		sleeper = Clock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pacer{sleeper: sleeper, rnd: rand.Int64N, logger: logger}
}

// Wait sleeps for a delay drawn from w. It returns ctx.Err() when cancelled.
func (p *Pacer) Wait(ctx context.Context, w Window) error {
	d := w.Draw(p.rnd)
	if d >= time.Second {
		p.logger.Debug("pacing: waiting", "seconds", d.Round(time.Second).Seconds())
	}
	return p.sleeper.Sleep(ctx, d)
}
