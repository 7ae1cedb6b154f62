// Package ratelimit spaces out requests to the same host within one run.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time for tests
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RealClock is the wall clock
var RealClock Clock = realClock{}

// DomainLimiter enforces a minimum spacing between requests to the same host.
// It is meant to live for a single run and is not shared between runs.
type DomainLimiter struct {
	spacing time.Duration
	clock   Clock

	mu    sync.Mutex
	hosts map[string]*hostSlot
}

type hostSlot struct {
	mu   sync.Mutex
	last time.Time
}

// NewDomainLimiter creates a limiter with the given minimum spacing
func NewDomainLimiter(spacing time.Duration, clock Clock) *DomainLimiter {
	if clock == nil {
		clock = RealClock
	}
	return &DomainLimiter{
		spacing: spacing,
		clock:   clock,
		hosts:   make(map[string]*hostSlot),
	}
}

// Wait blocks until host may be contacted, then records the request time.
// It returns how long it waited.
func (l *DomainLimiter) Wait(ctx context.Context, host string) (time.Duration, error) {
	slot := l.slot(host)

	// held across the sleep so callers on the same host queue up
	slot.mu.Lock()
	defer slot.mu.Unlock()

	var waited time.Duration
	if !slot.last.IsZero() {
		wait := l.spacing - l.clock.Now().Sub(slot.last)
		if wait > 0 {
			if err := l.clock.Sleep(ctx, wait); err != nil {
				return 0, err
			}
			waited = wait
		}
	}

	slot.last = l.clock.Now()
	return waited, nil
}

// LastRequest returns when host was last contacted in this run
func (l *DomainLimiter) LastRequest(host string) (time.Time, bool) {
	l.mu.Lock()
	slot, ok := l.hosts[host]
	l.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.last, !slot.last.IsZero()
}

func (l *DomainLimiter) slot(host string) *hostSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.hosts[host]
	if !ok {
		slot = &hostSlot{}
		l.hosts[host] = slot
	}
	return slot
}
