package executor

import (
	"context"
	"sync"
	"time"
)

// Dedup remembers signal keys for a time-to-live window so the same signal
// scraped on consecutive polls is executed once. It is safe for concurrent
// use and satisfies domain.SignalClaimer for single-process deployments.
type Dedup struct {
	seen map[string]time.Time // key -> first claimed
	ttl  time.Duration
	mu   sync.Mutex
	now  func() time.Time
}

// NewDedup creates a Dedup with the given ttl.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Claim records key and returns true, unless key was claimed within ttl.
// The ttl argument overrides the default when positive.
func (d *Dedup) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = d.ttl
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if claimed, ok := d.seen[key]; ok && now.Sub(claimed) < ttl {
		return false, nil
	}
	d.seen[key] = now
	return true, nil
}

// Release forgets key so it can be claimed again.
func (d *Dedup) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
	return nil
}

// Cleanup removes entries older than the default ttl.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, key)
		}
	}
}

// Len returns the number of remembered keys.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
