package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const (
	defaultProbeURL      = "https://connectivitycheck.gstatic.com/generate_204"
	defaultProbeInterval = 15 * time.Second
	defaultProbeTimeout  = 5 * time.Second
)

// ProbePlatform derives connectivity from a periodic HTTP reachability
// check, for environments with no OS-level connectivity signal. Any
// 2xx/3xx response counts as reachable.
type ProbePlatform struct {
	url      string
	interval time.Duration
	client   *http.Client

	mu          sync.Mutex
	subscribers map[int]func(Status)
	nextID      int
	cancel      context.CancelFunc
}

type ProbeOption func(*ProbePlatform)

func WithProbeURL(url string) ProbeOption {
	return func(p *ProbePlatform) { p.url = url }
}

func WithProbeInterval(d time.Duration) ProbeOption {
	return func(p *ProbePlatform) { p.interval = d }
}

func NewProbePlatform(opts ...ProbeOption) *ProbePlatform {
	p := &ProbePlatform{
		url:         defaultProbeURL,
		interval:    defaultProbeInterval,
		client:      &http.Client{Timeout: defaultProbeTimeout},
		subscribers: make(map[int]func(Status)),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *ProbePlatform) FetchCurrentState(ctx context.Context) (Status, error) {
	reachable := p.probe(ctx)
	return Status{Connected: reachable, Reachable: &reachable, Type: "probe"}, nil
}

// Subscribe starts the probe loop on the first subscriber and stops it when
// the last one detaches.
func (p *ProbePlatform) Subscribe(fn func(Status)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn

	if p.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		go p.loop(ctx)
	}

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
		if len(p.subscribers) == 0 && p.cancel != nil {
			p.cancel()
			p.cancel = nil
		}
	}
}

func (p *ProbePlatform) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		reachable := p.probe(ctx)
		status := Status{Connected: reachable, Reachable: &reachable, Type: "probe"}

		p.mu.Lock()
		callbacks := make([]func(Status), 0, len(p.subscribers))
		for _, fn := range p.subscribers {
			callbacks = append(callbacks, fn)
		}
		p.mu.Unlock()

		for _, fn := range callbacks {
			fn(status)
		}
	}
}

func (p *ProbePlatform) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusBadRequest
}
