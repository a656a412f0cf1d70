// Package testutil provides shared test doubles for the sync engine
// packages.
package testutil

import (
	"context"
	"sync"
	"time"
)

// RecordingSleeper captures requested sleep durations instead of
// sleeping, making retry/backoff schedules assertable and instant.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

// NewRecordingSleeper creates a sleeper with no recorded delays.
func NewRecordingSleeper() *RecordingSleeper {
	return &RecordingSleeper{}
}

// Sleep records d and returns immediately. It still honours context
// cancellation so cancellation paths stay testable.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

// Delays returns a copy of the recorded sleep durations in order.
func (s *RecordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}

// Reset clears the recorded delays for test reuse.
func (s *RecordingSleeper) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = nil
}
