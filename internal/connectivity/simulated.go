package connectivity

import (
	"context"
	"sync"
)

// SimulatedPlatform is a hand-driven connectivity source. Callers flip the
// state with SetOnline and every subscriber sees the event, which makes it
// useful for demos and for exercising reconnect drains without a real
// network.
type SimulatedPlatform struct {
	mu          sync.Mutex
	status      Status
	subscribers map[int]func(Status)
	nextID      int
}

func NewSimulatedPlatform(online bool) *SimulatedPlatform {
	return &SimulatedPlatform{
		status:      Status{Connected: online, Type: "simulated"},
		subscribers: make(map[int]func(Status)),
	}
}

func (p *SimulatedPlatform) FetchCurrentState(ctx context.Context) (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, nil
}

func (p *SimulatedPlatform) Subscribe(fn func(Status)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}
}

// SetOnline flips the simulated state and notifies subscribers.
func (p *SimulatedPlatform) SetOnline(online bool) {
	p.mu.Lock()
	p.status = Status{Connected: online, Type: "simulated"}
	status := p.status
	callbacks := make([]func(Status), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		callbacks = append(callbacks, fn)
	}
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(status)
	}
}

// Toggle inverts the current state and returns the new one.
func (p *SimulatedPlatform) Toggle() bool {
	p.mu.Lock()
	online := !p.status.Connected
	p.mu.Unlock()

	p.SetOnline(online)
	return online
}
