package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// Pacer sleeps a randomized gap before every call but the first. Each gap
// is drawn uniformly from [minDelay, maxDelay] and starts when Wait is
// called, so time spent in the previous request does not shorten it.
type Pacer struct {
	mu       sync.Mutex
	started  bool
	minDelay time.Duration
	maxDelay time.Duration
	jitter   func(n int64) int64 // returns [0, n); swapped in tests
}

// NewPacer creates a pacer with gaps in [minDelay, maxDelay]. If maxDelay is
// below minDelay the gap is fixed at minDelay.
func NewPacer(minDelay, maxDelay time.Duration) *Pacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Pacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   rand.Int64N,
	}
}

// Wait sleeps the next gap. The first call returns immediately. Returns an
// error if the context is cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.started = true
		p.mu.Unlock()
		return nil
	}
	gap := p.nextGap()
	p.mu.Unlock()

	if gap <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(gap)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("pacer wait: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// nextGap draws the next gap. Caller holds mu.
func (p *Pacer) nextGap() time.Duration {
	span := int64(p.maxDelay - p.minDelay)
	if span <= 0 {
		return p.minDelay
	}
	return p.minDelay + time.Duration(p.jitter(span+1))
}
