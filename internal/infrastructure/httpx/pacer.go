package httpx

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between consecutive requests.
type Pacer struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
}

// NewPacer returns a pacer; a non-positive delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay}
}

// Wait blocks until delay has passed since the previous call returned, or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.delay <= 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if wait := p.delay - time.Since(p.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}
