package providers

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/offlinepay/internal/domain/errors"
	"github.com/cassiomorais/offlinepay/internal/domain/operation"
	"github.com/cassiomorais/offlinepay/internal/observability"
	"github.com/cassiomorais/offlinepay/internal/processor"
	"github.com/sony/gobreaker/v2"
)

// Factory owns the registered providers, one circuit breaker per provider,
// and the kind-to-provider bindings the dispatch table is built from.
type Factory struct {
	providers       map[string]Provider
	circuitBreakers map[string]*gobreaker.CircuitBreaker[*Result]
	bindings        map[operation.Kind]string
	metrics         *observability.Metrics
}

type FactoryOption func(*Factory)

// WithMetrics attaches provider request and breaker state instrumentation.
func WithMetrics(m *observability.Metrics) FactoryOption {
	return func(f *Factory) { f.metrics = m }
}

// NewFactory registers the given providers, or a default trio of mocks
// standing in for the real Paystack, Stripe and Flutterwave wrappers when
// none are supplied.
func NewFactory(providersList []Provider, opts ...FactoryOption) *Factory {
	f := &Factory{
		providers:       make(map[string]Provider),
		circuitBreakers: make(map[string]*gobreaker.CircuitBreaker[*Result]),
		bindings:        defaultBindings(),
	}
	for _, o := range opts {
		o(f)
	}

	if len(providersList) == 0 {
		f.Register(NewMockProvider("paystack",
			WithLatency(150*time.Millisecond),
			WithFailureRate(0.05),
		))
		f.Register(NewMockProvider("stripe",
			WithLatency(200*time.Millisecond),
			WithFailureRate(0.05),
		))
		f.Register(NewMockProvider("flutterwave",
			WithLatency(250*time.Millisecond),
			WithFailureRate(0.08),
		))
	} else {
		for _, p := range providersList {
			f.Register(p)
		}
	}

	return f
}

func defaultBindings() map[operation.Kind]string {
	return map[operation.Kind]string{
		operation.KindSendMoney:   "paystack",
		operation.KindAirtime:     "paystack",
		operation.KindDataBundle:  "paystack",
		operation.KindBillPayment: "flutterwave",
		operation.KindRemittance:  "stripe",
	}
}

func (f *Factory) Register(p Provider) {
	f.providers[p.Name()] = p
	f.circuitBreakers[p.Name()] = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			if f.metrics != nil {
				f.metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			}
		},
	})
}

// Bind routes an operation kind to a registered provider.
func (f *Factory) Bind(kind operation.Kind, providerName string) {
	f.bindings[kind] = providerName
}

func (f *Factory) Get(name string) (Provider, *gobreaker.CircuitBreaker[*Result], error) {
	p, ok := f.providers[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown provider %q: %w", name, domainErrors.ErrProviderUnavailable)
	}
	return p, f.circuitBreakers[name], nil
}

// Dispatch builds the processor's dispatch table from the current bindings.
// Each handler validates the payload, then calls its provider through the
// breaker. Kinds bound to unregistered providers are skipped so a partial
// deployment degrades to per-kind failures instead of a startup error.
func (f *Factory) Dispatch() *processor.Dispatch {
	d := processor.NewDispatch()
	for kind, providerName := range f.bindings {
		provider, breaker, err := f.Get(providerName)
		if err != nil {
			continue
		}
		d.Register(f.handler(kind, provider, breaker))
	}
	return d
}

func (f *Factory) handler(kind operation.Kind, provider Provider, breaker *gobreaker.CircuitBreaker[*Result]) processor.Handler {
	return processor.NewHandlerFunc(kind, func(ctx context.Context, payload map[string]any) error {
		req, err := BuildRequest(kind, payload)
		if err != nil {
			return err
		}

		result, err := breaker.Execute(func() (*Result, error) {
			return provider.Execute(ctx, req)
		})
		if err != nil {
			f.countRequest(provider.Name(), "error")
			return fmt.Errorf("provider %s: %w", provider.Name(), err)
		}
		if result.Status == "failed" {
			f.countRequest(provider.Name(), "rejected")
			return fmt.Errorf("provider %s: %w: %s", provider.Name(), domainErrors.ErrProviderRejected, result.ErrorMessage)
		}

		f.countRequest(provider.Name(), "success")
		return nil
	})
}

func (f *Factory) countRequest(provider, result string) {
	if f.metrics != nil {
		f.metrics.ProviderRequests.WithLabelValues(provider, result).Inc()
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
