// Package ratelimit provides the sliding-window limiter applied to the
// upstream URL-resolution collaborator: at most max calls are admitted in
// any trailing window; callers over the limit are delayed, never rejected.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type SlidingWindow struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	stamps []time.Time
}

func NewSlidingWindow(max int, window time.Duration) *SlidingWindow {
	if max < 1 {
		max = 1
	}
	return &SlidingWindow{
		max:    max,
		window: window,
		stamps: make([]time.Time, 0, max),
	}
}

// Wait blocks until a slot is free in the trailing window, then records the
// admission. It returns early with ctx.Err() if the context is cancelled.
func (l *SlidingWindow) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		l.evict(now)

		if len(l.stamps) < l.max {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		// Wait until the oldest admission falls out of the window.
		wait := l.stamps[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// evict drops admissions older than the window. Caller holds l.mu.
func (l *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && l.stamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}

// Pending returns how many admissions currently sit in the window.
func (l *SlidingWindow) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(time.Now())
	return len(l.stamps)
}
