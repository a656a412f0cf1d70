package sync

import (
	"context"
	"time"

	"github.com/tillsync/tillsync/internal/remote"
)

// Policy controls how a failed remote call is retried. Delays grow
// geometrically: InitialDelay, InitialDelay*BackoffFactor, and so on,
// for at most MaxAttempts total attempts.
type Policy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64

	// Sleep is swappable for tests. nil means real sleeping that
	// honours context cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy matches the behaviour the rest of the engine assumes:
// three attempts with a one second base delay doubling each time.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		BackoffFactor: 2,
	}
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
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

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget runs out. The last error is returned as-is so callers
// can still classify it with remote.IsConflict and friends.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.InitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !remote.IsRetryable(err) || attempt == attempts {
			return err
		}
		if serr := p.sleep(ctx, delay); serr != nil {
			return serr
		}
		delay = time.Duration(float64(delay) * p.BackoffFactor)
	}
}
