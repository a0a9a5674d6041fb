package connectivity_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cassiomorais/offlinepay/internal/connectivity"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform simulates the device connectivity stack.
type fakePlatform struct {
	mu       sync.Mutex
	status   connectivity.Status
	fetchErr error
	handlers []func(connectivity.Status)
}

func newFakePlatform(online bool) *fakePlatform {
	return &fakePlatform{status: connectivity.Status{Connected: online, Type: "wifi"}}
}

func (p *fakePlatform) FetchCurrentState(_ context.Context) (connectivity.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetchErr != nil {
		return connectivity.Status{}, p.fetchErr
	}
	return p.status, nil
}

func (p *fakePlatform) Subscribe(fn func(connectivity.Status)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, fn)
	idx := len(p.handlers) - 1
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.handlers[idx] = nil
	}
}

func (p *fakePlatform) emit(online bool) {
	p.mu.Lock()
	p.status = connectivity.Status{Connected: online, Type: "cellular"}
	handlers := make([]func(connectivity.Status), len(p.handlers))
	copy(handlers, p.handlers)
	status := p.status
	p.mu.Unlock()

	for _, fn := range handlers {
		if fn != nil {
			fn(status)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestInitialize_BaselineOffline(t *testing.T) {
	platform := newFakePlatform(false)
	m := connectivity.NewMonitor(platform, zerolog.Nop())

	require.NoError(t, m.Initialize(context.Background()))
	assert.False(t, m.IsOnline())
}

func TestInitialize_OnlineTriggersDrainOnce(t *testing.T) {
	platform := newFakePlatform(true)
	m := connectivity.NewMonitor(platform, zerolog.Nop())

	var mu sync.Mutex
	drains := 0
	m.OnReconnect(func() {
		mu.Lock()
		drains++
		mu.Unlock()
	})

	require.NoError(t, m.Initialize(context.Background()))
	assert.True(t, m.IsOnline())

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return drains == 1
	})
}

func TestInitialize_QueryFailureMeansOffline(t *testing.T) {
	platform := newFakePlatform(true)
	platform.fetchErr = errors.New("platform unavailable")
	m := connectivity.NewMonitor(platform, zerolog.Nop())

	require.NoError(t, m.Initialize(context.Background()))
	assert.False(t, m.IsOnline())
}

func TestNetworkStatus_FreshRead(t *testing.T) {
	platform := newFakePlatform(true)
	m := connectivity.NewMonitor(platform, zerolog.Nop())
	require.NoError(t, m.Initialize(context.Background()))

	status := m.NetworkStatus(context.Background())
	assert.True(t, status.Connected)
	assert.Equal(t, "wifi", status.Type)

	platform.fetchErr = errors.New("radio off")
	status = m.NetworkStatus(context.Background())
	assert.False(t, status.Connected)
}

func TestTransition_NotifiesSubscribers(t *testing.T) {
	platform := newFakePlatform(false)
	m := connectivity.NewMonitor(platform, zerolog.Nop())
	require.NoError(t, m.Initialize(context.Background()))

	var mu sync.Mutex
	var got []bool
	m.Subscribe(func(online bool) {
		mu.Lock()
		got = append(got, online)
		mu.Unlock()
	})

	platform.emit(true)
	platform.emit(false)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, got)
	assert.False(t, m.IsOnline())
}

func TestTransition_RepeatedStateIgnored(t *testing.T) {
	platform := newFakePlatform(false)
	m := connectivity.NewMonitor(platform, zerolog.Nop())
	require.NoError(t, m.Initialize(context.Background()))

	var mu sync.Mutex
	notifications := 0
	m.Subscribe(func(bool) {
		mu.Lock()
		notifications++
		mu.Unlock()
	})

	platform.emit(true)
	platform.emit(true)
	platform.emit(true)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, notifications)
}

func TestTransition_ReconnectFiresDrain(t *testing.T) {
	platform := newFakePlatform(false)
	m := connectivity.NewMonitor(platform, zerolog.Nop())

	var mu sync.Mutex
	drains := 0
	m.OnReconnect(func() {
		mu.Lock()
		drains++
		mu.Unlock()
	})
	require.NoError(t, m.Initialize(context.Background()))

	platform.emit(true)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return drains == 1
	})

	// Going offline must not fire the drain hook.
	platform.emit(false)
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, drains)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	platform := newFakePlatform(false)
	m := connectivity.NewMonitor(platform, zerolog.Nop())
	require.NoError(t, m.Initialize(context.Background()))

	var mu sync.Mutex
	notifications := 0
	unsubscribe := m.Subscribe(func(bool) {
		mu.Lock()
		notifications++
		mu.Unlock()
	})

	platform.emit(true)
	unsubscribe()
	platform.emit(false)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, notifications)
}

func TestSubscribe_MultipleSubscribers(t *testing.T) {
	platform := newFakePlatform(false)
	m := connectivity.NewMonitor(platform, zerolog.Nop())
	require.NoError(t, m.Initialize(context.Background()))

	var mu sync.Mutex
	first, second := 0, 0
	m.Subscribe(func(bool) { mu.Lock(); first++; mu.Unlock() })
	m.Subscribe(func(bool) { mu.Lock(); second++; mu.Unlock() })

	platform.emit(true)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}
