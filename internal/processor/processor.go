// Package processor drives queued operations from pending to a terminal
// state whenever the device is online. Records are processed strictly
// sequentially in insertion order: handlers call shared external payment
// APIs where concurrent or out-of-order submission of financial operations
// is unacceptable.
package processor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cassiomorais/offlinepay/internal/domain/errors"
	"github.com/cassiomorais/offlinepay/internal/domain/operation"
	"github.com/cassiomorais/offlinepay/internal/observability"
	"github.com/cassiomorais/offlinepay/internal/queue"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cassiomorais/offlinepay/internal/processor"

// Processor replays deferred operations against their backend handlers with
// bounded retries. No backoff is applied between automatic attempts: drains
// are gated by real connectivity transitions, which throttle retry
// frequency naturally on a client with infrequent, event-driven
// reconnections.
type Processor struct {
	queue    *queue.Queue
	dispatch *Dispatch
	online   func() bool
	logger   zerolog.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer

	draining atomic.Bool
}

type Option func(*Processor)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithTracer overrides the tracer. Tests only.
func WithTracer(t trace.Tracer) Option {
	return func(p *Processor) { p.tracer = t }
}

// New creates a processor. online reports the monitor's last known
// connectivity state and must never block.
func New(q *queue.Queue, dispatch *Dispatch, online func() bool, logger zerolog.Logger, opts ...Option) *Processor {
	p := &Processor{
		queue:    q,
		dispatch: dispatch,
		online:   online,
		logger:   observability.ComponentLogger(logger, "processor"),
		tracer:   otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessQueue performs one drain: a single pass over the currently pending
// records. It is a no-op when offline or when a drain is already running;
// records enqueued while a drain runs wait for the next trigger. Per-record
// failures never stop the pass.
func (p *Processor) ProcessQueue(ctx context.Context) error {
	if !p.draining.CompareAndSwap(false, true) {
		p.logger.Debug().Msg("drain already in progress, skipping")
		return nil
	}
	defer p.draining.Store(false)

	if !p.online() {
		p.logger.Debug().Msg("offline, skipping drain")
		return nil
	}

	ctx, span := p.tracer.Start(ctx, "queue.drain")
	defer span.End()
	start := time.Now()

	ops, err := p.queue.List(ctx)
	if err != nil {
		return fmt.Errorf("list queue: %w", err)
	}

	attempted := 0
	for _, op := range ops {
		if op.Status != operation.StatusPending {
			continue
		}
		attempted++
		if err := p.processOne(ctx, op); err != nil {
			p.logger.Warn().Err(err).Str("id", op.ID).Str("kind", string(op.Kind)).Msg("operation attempt failed")
		}
	}

	span.SetAttributes(attribute.Int("queue.attempted", attempted))
	if p.metrics != nil {
		p.metrics.DrainsTotal.Inc()
		p.metrics.DrainDuration.Observe(time.Since(start).Seconds())
	}
	p.logger.Info().Int("attempted", attempted).Dur("took", time.Since(start)).Msg("drain finished")

	return nil
}

// RetryOperation resets a failed record and gives it one eager processing
// attempt instead of waiting for the next automatic drain. Returns the
// refreshed record so the caller can show the outcome immediately.
func (p *Processor) RetryOperation(ctx context.Context, id string) (*operation.Operation, error) {
	op, err := p.queue.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := op.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := p.queue.Update(ctx, op); err != nil {
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.ManualRetries.WithLabelValues(string(op.Kind)).Inc()
	}
	p.logger.Info().Str("id", op.ID).Str("kind", string(op.Kind)).Msg("manual retry requested")

	if err := p.processOne(ctx, op); err != nil {
		p.logger.Warn().Err(err).Str("id", op.ID).Msg("manual retry attempt failed")
	}

	return p.queue.Get(ctx, id)
}

// processOne runs a single processing attempt for one record. The record
// transitions to processing, the handler runs to completion (there is no
// cancellation of an in-flight handler call), and the outcome is persisted:
// completed on success, pending-with-incremented-retry or failed on error.
// A record requeued here is eligible for the next drain, not the current
// one.
func (p *Processor) processOne(ctx context.Context, op *operation.Operation) error {
	ctx, span := p.tracer.Start(ctx, "queue.process_one", trace.WithAttributes(
		attribute.String("operation.id", op.ID),
		attribute.String("operation.kind", string(op.Kind)),
		attribute.Int("operation.retry_count", op.RetryCount),
	))
	defer span.End()

	if err := op.MarkProcessing(); err != nil {
		return err
	}
	if err := p.queue.Update(ctx, op); err != nil {
		return fmt.Errorf("persist processing status: %w", err)
	}

	var handleErr error
	handler, ok := p.dispatch.Get(op.Kind)
	if !ok {
		handleErr = fmt.Errorf("%w: %s", errors.ErrHandlerNotFound, op.Kind)
	} else {
		handleErr = handler.Handle(ctx, op.Payload)
	}

	if handleErr == nil {
		if err := op.MarkCompleted(); err != nil {
			return err
		}
		if err := p.queue.Update(ctx, op); err != nil {
			return fmt.Errorf("persist completed status: %w", err)
		}
		if p.metrics != nil {
			p.metrics.OperationsProcessed.WithLabelValues(string(op.Kind), "completed").Inc()
		}
		p.logger.Info().Str("id", op.ID).Str("kind", string(op.Kind)).Msg("operation completed")
		return nil
	}

	span.RecordError(handleErr)

	terminal, err := op.RecordFailure(handleErr.Error())
	if err != nil {
		return err
	}
	if err := p.queue.Update(ctx, op); err != nil {
		return fmt.Errorf("persist failure status: %w", err)
	}

	if p.metrics != nil {
		outcome := "requeued"
		if terminal {
			outcome = "failed"
		}
		p.metrics.OperationsProcessed.WithLabelValues(string(op.Kind), outcome).Inc()
		p.metrics.OperationRetries.WithLabelValues(string(op.Kind)).Inc()
	}

	if terminal {
		p.logger.Error().Err(handleErr).
			Str("id", op.ID).Str("kind", string(op.Kind)).Int("retry_count", op.RetryCount).
			Msg("operation failed permanently")
	} else {
		p.logger.Warn().Err(handleErr).
			Str("id", op.ID).Str("kind", string(op.Kind)).Int("retry_count", op.RetryCount).
			Msg("operation requeued for next drain")
	}

	return handleErr
}
