package provider

import (
	"context"
	"sync"
	"time"
)

// pacer enforces the minimum spacing between calls to one provider and holds
// the backoff window opened after a 429 response. All Api calls to the same
// provider share one pacer, so spacing applies across goroutines.
type pacer struct {
	mu       sync.Mutex
	minGap   time.Duration
	backoff  time.Duration
	lastCall time.Time
	blockedT time.Time // end of the current backoff window, zero when open
}

func newPacer(minGap, backoff time.Duration) *pacer {
	return &pacer{minGap: minGap, backoff: backoff}
}

// wait blocks until the provider may be called again. It returns
// errBackingOff immediately when the provider is inside a 429 backoff window:
// the caller should fail over instead of queueing behind the penalty.
func (p *pacer) wait(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	if !p.blockedT.IsZero() {
		if now.Before(p.blockedT) {
			p.mu.Unlock()
			return errBackingOff
		}
		p.blockedT = time.Time{}
	}
	var sleep time.Duration
	if p.minGap > 0 && !p.lastCall.IsZero() {
		if next := p.lastCall.Add(p.minGap); next.After(now) {
			sleep = next.Sub(now)
		}
	}
	p.lastCall = now.Add(sleep)
	p.mu.Unlock()

	if sleep <= 0 {
		return nil
	}
	t := time.NewTimer(sleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// penalize opens the backoff window after an upstream rate-limit response.
func (p *pacer) penalize() {
	if p.backoff <= 0 {
		return
	}
	p.mu.Lock()
	p.blockedT = time.Now().Add(p.backoff)
	p.mu.Unlock()
}
