package translation

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval spaces calls to providers without a configured interval.
const DefaultMinInterval = time.Second

// DefaultIntervals returns the minimum spacing between calls per provider.
func DefaultIntervals() map[string]time.Duration {
	return map[string]time.Duration{
		"google":         1000 * time.Millisecond,
		"lingva":         1000 * time.Millisecond,
		"libretranslate": 1200 * time.Millisecond,
		"mymemory":       1500 * time.Millisecond,
		"local":          1000 * time.Millisecond,
		"gemini":         1500 * time.Millisecond,
	}
}

// RateLimiter enforces a minimum interval between calls to the same provider.
// One gate is shared per provider across every caller; waiters are admitted
// one at a time and spacing is measured from the previous grant.
type RateLimiter struct {
	mu        sync.Mutex
	gates     map[string]*providerGate
	intervals map[string]time.Duration
	fallback  time.Duration
}

type providerGate struct {
	turn     chan struct{}
	limiter  *rate.Limiter
	interval time.Duration
	last     time.Time
}

func NewRateLimiter(intervals map[string]time.Duration, fallback time.Duration) *RateLimiter {
	if fallback <= 0 {
		fallback = DefaultMinInterval
	}
	copied := make(map[string]time.Duration, len(intervals))
	for name, interval := range intervals {
		copied[normalizeProviderName(name)] = interval
	}
	return &RateLimiter{
		gates:     make(map[string]*providerGate),
		intervals: copied,
		fallback:  fallback,
	}
}

// Acquire blocks until the provider may be called again or ctx ends.
func (r *RateLimiter) Acquire(ctx context.Context, provider string) error {
	if r == nil {
		return nil
	}
	gate := r.gate(provider)

	select {
	case gate.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-gate.turn }()

	if err := gate.limiter.Wait(ctx); err != nil {
		return err
	}
	// A late timer wake-up must not shorten the gap to the next caller.
	if !gate.last.IsZero() {
		if remaining := time.Until(gate.last.Add(gate.interval)); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
	gate.last = time.Now()
	return nil
}

func (r *RateLimiter) Interval(provider string) time.Duration {
	if r == nil {
		return 0
	}
	if interval, ok := r.intervals[normalizeProviderName(provider)]; ok {
		return interval
	}
	return r.fallback
}

func (r *RateLimiter) gate(provider string) *providerGate {
	name := normalizeProviderName(provider)

	r.mu.Lock()
	defer r.mu.Unlock()

	if gate, ok := r.gates[name]; ok {
		return gate
	}
	interval := r.Interval(name)
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	gate := &providerGate{
		turn:     make(chan struct{}, 1),
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
	}
	r.gates[name] = gate
	return gate
}
