// Package connectivity maintains the last known connectivity state and
// notifies subscribers on transitions. Platform query failures are treated
// as offline rather than surfaced; the queue would rather defer work than
// dispatch into a broken network stack.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cassiomorais/offlinepay/internal/observability"
	"github.com/rs/zerolog"
)

// Monitor tracks connectivity and owns the offline-to-online drain trigger.
type Monitor struct {
	platform Platform
	logger   zerolog.Logger
	metrics  *observability.Metrics

	online atomic.Bool

	mu          sync.Mutex
	subscribers map[int]func(bool)
	nextSubID   int
	onReconnect func()
	unsubscribe func()
}

type Option func(*Monitor)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(mon *Monitor) { mon.metrics = m }
}

func NewMonitor(platform Platform, logger zerolog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		platform:    platform,
		logger:      observability.ComponentLogger(logger, "connectivity"),
		subscribers: make(map[int]func(bool)),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// OnReconnect registers the hook fired once per offline-to-online
// transition, and once at Initialize when the device starts online. The
// processor's single-flight guard makes duplicate firings harmless.
func (m *Monitor) OnReconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnect = fn
}

// Initialize queries the baseline state and subscribes to platform change
// events. Must be called before the monitor is useful; calling it twice
// resubscribes.
func (m *Monitor) Initialize(ctx context.Context) error {
	status, err := m.platform.FetchCurrentState(ctx)
	if err != nil {
		// Fail safe: an unanswerable platform means offline.
		m.logger.Warn().Err(err).Msg("connectivity query failed, assuming offline")
		status = Status{Connected: false}
	}
	m.online.Store(status.Connected)
	m.logger.Info().Bool("online", status.Connected).Str("type", status.Type).Msg("connectivity baseline set")

	m.mu.Lock()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.unsubscribe = m.platform.Subscribe(m.handleEvent)
	hook := m.onReconnect
	m.mu.Unlock()

	if status.Connected && hook != nil {
		go hook()
	}
	return nil
}

// IsOnline reads the last known state. Never blocks, never performs I/O.
func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// NetworkStatus forces a fresh platform read. A failed query reports
// offline instead of returning the error.
func (m *Monitor) NetworkStatus(ctx context.Context) Status {
	status, err := m.platform.FetchCurrentState(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("connectivity query failed, reporting offline")
		return Status{Connected: false}
	}
	return status
}

// Subscribe registers a callback invoked with the new state on every
// transition. Callback order across subscribers is unspecified; each is
// invoked exactly once per transition. The returned function de-registers
// the callback.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Close detaches the monitor from the platform event stream.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// handleEvent processes one platform connectivity event. Repeated events
// with an unchanged state are ignored; a genuine transition notifies every
// subscriber and, when the device came back online, fires the drain hook
// exactly once.
func (m *Monitor) handleEvent(status Status) {
	wasOnline := m.online.Swap(status.Connected)
	if wasOnline == status.Connected {
		return
	}

	direction := "online_to_offline"
	if status.Connected {
		direction = "offline_to_online"
	}
	m.logger.Info().Str("direction", direction).Str("type", status.Type).Msg("connectivity transition")
	if m.metrics != nil {
		m.metrics.ConnectivityTransitions.WithLabelValues(direction).Inc()
	}

	m.mu.Lock()
	callbacks := make([]func(bool), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		callbacks = append(callbacks, fn)
	}
	hook := m.onReconnect
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(status.Connected)
	}

	if !wasOnline && status.Connected && hook != nil {
		go hook()
	}
}
