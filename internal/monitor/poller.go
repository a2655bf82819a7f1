package monitor

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Result is the outcome of one poll.
type Result struct {
	Entries []Entry
	Err     error
	At      time.Time
}

// FetchFunc produces a fresh set of entries.
type FetchFunc func(ctx context.Context) ([]Entry, error)

// Poller runs fetches one at a time. The next fetch is scheduled only after the
// previous one completed and its result was consumed, so a slow query never
// piles up behind a fixed timer.
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	limiter  *rate.Limiter
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithMinSpacing bounds how often fetches can start, which matters when the
// interval is zero and the poller would otherwise spin.
func WithMinSpacing(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// NewPoller creates a poller that waits interval between a completed fetch and
// the next one.
func NewPoller(fetch FetchFunc, interval time.Duration, opts ...PollerOption) *Poller {
	p := &Poller{
		fetch:    fetch,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs the poll loop in a goroutine. The returned channel is unbuffered and
// closed when ctx is done.
func (p *Poller) Start(ctx context.Context) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		p.Run(ctx, func(r Result) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return out
}

// Run polls until ctx is done or deliver returns false.
func (p *Poller) Run(ctx context.Context, deliver func(Result) bool) {
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		entries, err := p.fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if !deliver(Result{Entries: entries, Err: err, At: time.Now()}) {
			return
		}

		if p.interval <= 0 {
			continue
		}
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
