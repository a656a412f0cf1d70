package sync

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Probe reports whether the remote backend is reachable right now.
type Probe func(ctx context.Context) bool

// TCPProbe dials addr with the given timeout. It is the default probe
// when the process has no better connectivity signal from its host.
func TCPProbe(addr string, timeout time.Duration) Probe {
	return func(ctx context.Context) bool {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}

// Monitor tracks online state and fires a callback on every offline to
// online transition. State can be driven two ways: the host process
// pushes transitions through SetOnline, or an optional Probe is polled
// on ProbeInterval. Both paths coalesce through a buffered signal
// channel so a burst of transitions triggers at most one pending cycle.
type Monitor struct {
	mu     sync.Mutex
	online bool

	probe    Probe
	interval time.Duration
	onOnline func(ctx context.Context)

	signal chan struct{}
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithProbe polls fn every interval and feeds the result to SetOnline.
func WithProbe(fn Probe, interval time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.probe = fn
		m.interval = interval
	}
}

// NewMonitor starts offline so the first SetOnline(true) or successful
// probe fires onOnline and flushes anything queued while the process
// was disconnected.
func NewMonitor(onOnline func(ctx context.Context), opts ...MonitorOption) *Monitor {
	m := &Monitor{
		onOnline: onOnline,
		signal:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Online reports the last observed state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a state observation. Only the offline to online
// edge raises a signal; repeated observations of the same state are
// no-ops.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	transitioned := online && !m.online
	m.online = online
	m.mu.Unlock()

	if !transitioned {
		return
	}

	// Non-blocking send, buffer of 1 coalesces multiple signals
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled, invoking the callback once per
// coalesced offline to online transition. Callbacks run on this
// goroutine, so a sync cycle in flight delays (and coalesces with) the
// next transition rather than overlapping it.
func (m *Monitor) Run(ctx context.Context) error {
	var ticker *time.Ticker
	var tick <-chan time.Time
	if m.probe != nil {
		ticker = time.NewTicker(m.interval)
		defer ticker.Stop()
		tick = ticker.C

		// Establish the initial state before the first interval
		// elapses so startup-while-online syncs promptly.
		m.SetOnline(m.probe(ctx))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("connectivity monitor stopping: context cancelled")
			return ctx.Err()

		case <-tick:
			m.SetOnline(m.probe(ctx))

		case <-m.signal:
			slog.Info("connectivity restored, starting sync cycle")
			m.onOnline(ctx)
		}
	}
}
