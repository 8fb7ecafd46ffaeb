package sync

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"
)

// CheckFunc reports whether the device currently has network
// connectivity. Implementations must honor ctx.
type CheckFunc func(ctx context.Context) bool

// StatusChange is one online/offline transition delivered to subscribers.
type StatusChange struct {
	Online bool
	At     time.Time
}

// DefaultCheckInterval is how often the monitor re-probes connectivity.
const DefaultCheckInterval = 15 * time.Second

// Monitor tracks network connectivity and notifies subscribers
// on every transition. The current status is readable at any time via
// Online; transitions are pushed on subscriber channels. A subscriber that
// stops draining its channel loses events but never blocks the monitor.
type Monitor struct {
	check    CheckFunc
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	online bool
	subs   []chan StatusChange
}

// NewMonitor creates a connectivity monitor. The initial status is offline
// until the first check runs. A nil check falls back to inspecting the
// platform's network interfaces.
func NewMonitor(check CheckFunc, interval time.Duration, logger *slog.Logger) *Monitor {
	if check == nil {
		check = interfaceCheck
	}

	if interval <= 0 {
		interval = DefaultCheckInterval
	}

	return &Monitor{
		check:    check,
		interval: interval,
		logger:   logger,
	}
}

// interfaceCheck is the default connectivity check: any non-loopback
// interface that is up counts as online. The backend itself is never
// probed, so a captive portal still reads as online.
func interfaceCheck(_ context.Context) bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		if iface.Flags&net.FlagUp != 0 {
			return true
		}
	}

	return false
}

// Online returns the current connectivity status.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.online
}

// Subscribe registers a new transition channel. The channel is buffered so
// the monitor never blocks on a slow subscriber.
func (m *Monitor) Subscribe() <-chan StatusChange {
	ch := make(chan StatusChange, 8)

	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()

	return ch
}

// SetOnline forces the connectivity status, firing subscriber
// notifications if it changed. Used by the CLI's explicit offline switch
// and by tests; the probe loop goes through the same path.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()

	if m.online == online {
		m.mu.Unlock()
		return
	}

	m.online = online
	change := StatusChange{Online: online, At: time.Now()}
	subs := make([]chan StatusChange, len(m.subs))
	copy(subs, m.subs)

	m.mu.Unlock()

	m.logger.Info("connectivity changed", slog.Bool("online", online))

	for _, ch := range subs {
		select {
		case ch <- change:
		default:
			// Subscriber is not draining; drop rather than block.
		}
	}
}

// Probe runs one connectivity check and updates the status. One-shot
// commands call this instead of running the full probe loop.
func (m *Monitor) Probe(ctx context.Context) bool {
	m.SetOnline(m.check(ctx))

	return m.Online()
}

// Run probes connectivity immediately and then on every interval tick
// until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	m.SetOnline(m.check(ctx))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetOnline(m.check(ctx))
		}
	}
}
