package providers

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	domainErrors "github.com/cassiomorais/offlinepay/internal/domain/errors"
	"github.com/google/uuid"
)

type MockProvider struct {
	name        string
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
	timeoutRate float64 // 0.0 to 1.0
}

type MockProviderOption func(*MockProvider)

func WithFailureRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.failureRate = rate }
}

func WithLatency(d time.Duration) MockProviderOption {
	return func(p *MockProvider) { p.latency = d }
}

func WithTimeoutRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.timeoutRate = rate }
}

func NewMockProvider(name string, opts ...MockProviderOption) *MockProvider {
	p := &MockProvider{
		name:        name,
		failureRate: 0.0,
		latency:     100 * time.Millisecond,
		timeoutRate: 0.0,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) Execute(ctx context.Context, req Request) (*Result, error) {
	// Simulate latency
	select {
	case <-time.After(p.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Simulate timeout
	if rand.Float64() < p.timeoutRate {
		return nil, domainErrors.ErrProviderTimeout
	}

	// Simulate rejection
	if rand.Float64() < p.failureRate {
		return &Result{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: simulated %s failure for reference %s", p.name, req.Kind, req.Reference),
		}, domainErrors.ErrProviderRejected
	}

	return &Result{
		ProviderReference: fmt.Sprintf("%s_txn_%s", p.name, uuid.New().String()[:8]),
		Status:            "success",
	}, nil
}
