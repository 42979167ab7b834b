package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter spaces out calls to the scraping provider. Every call costs
// quota, so imports queue behind a jittered delay instead of bursting.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Jittered enforces a randomized delay between minDelay and maxDelay
// since the previous call. A zero max disables limiting entirely.
type Jittered struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewJittered(minDelay, maxDelay time.Duration) *Jittered {
	return &Jittered{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (l *Jittered) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxDelay <= 0 {
		l.lastAction = time.Now()
		return nil
	}

	delay := l.minDelay
	if spread := l.maxDelay - l.minDelay; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread)))
	}

	if elapsed := time.Since(l.lastAction); elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	l.lastAction = time.Now()
	return nil
}

// None is a Limiter that never waits.
type None struct{}

func (None) Wait(context.Context) error { return nil }
