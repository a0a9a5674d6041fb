// Package queue implements durable CRUD over queued operation records. It
// holds no business logic; the processor drives records through their
// lifecycle and the queue only persists them.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cassiomorais/offlinepay/internal/domain/errors"
	"github.com/cassiomorais/offlinepay/internal/domain/operation"
	"github.com/cassiomorais/offlinepay/internal/observability"
	"github.com/cassiomorais/offlinepay/internal/storage"
	"github.com/rs/zerolog"
)

// Queue owns the offline_operations collection. All mutation is a
// read-modify-write of the whole collection under the queue's lock; there
// are no concurrent direct writers by design.
type Queue struct {
	store   storage.Store
	logger  zerolog.Logger
	metrics *observability.Metrics

	defaultMaxRetries int

	mu     sync.Mutex
	loaded bool
	ops    []*operation.Operation
}

type Option func(*Queue)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

// WithDefaultMaxRetries overrides the retry ceiling applied when the
// enqueue caller does not set one.
func WithDefaultMaxRetries(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.defaultMaxRetries = n
		}
	}
}

func New(store storage.Store, logger zerolog.Logger, opts ...Option) *Queue {
	q := &Queue{
		store:             store,
		logger:            observability.ComponentLogger(logger, "queue"),
		defaultMaxRetries: operation.DefaultMaxRetries,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// EnqueueOption customizes a single enqueue call.
type EnqueueOption func(*enqueueParams)

type enqueueParams struct {
	maxRetries int
}

// WithMaxRetries sets the retry ceiling for this record. Immutable after
// enqueue.
func WithMaxRetries(n int) EnqueueOption {
	return func(p *enqueueParams) { p.maxRetries = n }
}

// Enqueue creates a pending record, appends it to the stored collection and
// returns it. The payload is opaque; callers should embed a stable
// reference string so backend-side replays of the same record are safe.
func (q *Queue) Enqueue(ctx context.Context, kind operation.Kind, payload map[string]any, opts ...EnqueueOption) (*operation.Operation, error) {
	params := enqueueParams{maxRetries: q.defaultMaxRetries}
	for _, o := range opts {
		o(&params)
	}

	op, err := operation.New(kind, payload, params.maxRetries)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.load(ctx)

	q.ops = append(q.ops, op)
	if err := q.persist(ctx); err != nil {
		q.ops = q.ops[:len(q.ops)-1]
		return nil, err
	}

	if q.metrics != nil {
		q.metrics.OperationsEnqueued.WithLabelValues(string(op.Kind)).Inc()
		q.metrics.QueueDepth.Set(float64(q.countPendingLocked()))
	}
	q.logger.Debug().Str("id", op.ID).Str("kind", string(op.Kind)).Msg("operation enqueued")

	return op.Clone(), nil
}

// List returns all records in insertion order, which is also the processing
// order. Returned records are copies.
func (q *Queue) List(ctx context.Context) ([]*operation.Operation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.load(ctx)

	out := make([]*operation.Operation, 0, len(q.ops))
	for _, op := range q.ops {
		out = append(out, op.Clone())
	}
	return out, nil
}

// Get returns the record with the given id.
func (q *Queue) Get(ctx context.Context, id string) (*operation.Operation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.load(ctx)

	for _, op := range q.ops {
		if op.ID == id {
			return op.Clone(), nil
		}
	}
	return nil, errors.ErrOperationNotFound
}

// Update replaces the stored record matching op.ID. Updating an absent id
// is a no-op.
func (q *Queue) Update(ctx context.Context, op *operation.Operation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.load(ctx)

	for i, existing := range q.ops {
		if existing.ID == op.ID {
			q.ops[i] = op.Clone()
			if err := q.persist(ctx); err != nil {
				q.ops[i] = existing
				return err
			}
			if q.metrics != nil {
				q.metrics.QueueDepth.Set(float64(q.countPendingLocked()))
			}
			return nil
		}
	}
	return nil
}

// Remove deletes the record with the given id. Removing an absent id is a
// no-op.
func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.load(ctx)

	for i, op := range q.ops {
		if op.ID == id {
			previous := q.ops
			q.ops = append(q.ops[:i:i], q.ops[i+1:]...)
			if err := q.persist(ctx); err != nil {
				q.ops = previous
				return err
			}
			if q.metrics != nil {
				q.metrics.QueueDepth.Set(float64(q.countPendingLocked()))
			}
			return nil
		}
	}
	return nil
}

// CountPending reports how many records are waiting for a drain.
func (q *Queue) CountPending(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.load(ctx)
	return q.countPendingLocked(), nil
}

// Sweep removes completed and failed records older than the retention
// window. It is caller-invoked, never automatic, so audit history is only
// dropped deliberately.
func (q *Queue) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.load(ctx)

	cutoff := time.Now().Add(-olderThan)
	kept := q.ops[:0:0]
	removed := 0
	for _, op := range q.ops {
		if op.IsTerminal() && op.UpdatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, op)
	}
	if removed == 0 {
		return 0, nil
	}

	previous := q.ops
	q.ops = kept
	if err := q.persist(ctx); err != nil {
		q.ops = previous
		return 0, err
	}

	if q.metrics != nil {
		q.metrics.OperationsSwept.Add(float64(removed))
	}
	q.logger.Info().Int("removed", removed).Msg("swept terminal operations")
	return removed, nil
}

func (q *Queue) countPendingLocked() int {
	n := 0
	for _, op := range q.ops {
		if op.Status == operation.StatusPending {
			n++
		}
	}
	return n
}

// load reads the stored collection once. Missing or corrupt state degrades
// to an empty queue so a cold start with bad storage never crashes the
// host.
func (q *Queue) load(ctx context.Context) {
	if q.loaded {
		return
	}
	q.loaded = true

	data, err := q.store.ReadCollection(ctx, storage.CollectionOperations)
	if err != nil {
		q.logger.Warn().Err(err).Msg("failed to read operations collection, starting empty")
		return
	}
	if len(data) == 0 {
		return
	}

	var ops []*operation.Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		q.logger.Warn().Err(err).Msg("operations collection is corrupt, starting empty")
		return
	}
	q.ops = ops
}

func (q *Queue) persist(ctx context.Context) error {
	data, err := json.Marshal(q.ops)
	if err != nil {
		return err
	}
	return q.store.WriteCollection(ctx, storage.CollectionOperations, data)
}
