package processor_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	domainErrors "github.com/cassiomorais/offlinepay/internal/domain/errors"
	"github.com/cassiomorais/offlinepay/internal/domain/operation"
	"github.com/cassiomorais/offlinepay/internal/processor"
	"github.com/cassiomorais/offlinepay/internal/queue"
	"github.com/cassiomorais/offlinepay/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(ref string) map[string]any {
	return map[string]any{"reference": ref, "amount": 2500, "currency": "NGN"}
}

// recordingHandler counts invocations and returns scripted results.
type recordingHandler struct {
	kind operation.Kind

	mu        sync.Mutex
	refs      []string
	failUntil int // fail the first n calls
	err       error
}

func (h *recordingHandler) Kind() operation.Kind { return h.kind }

func (h *recordingHandler) Handle(_ context.Context, payload map[string]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	ref, _ := payload["reference"].(string)
	h.refs = append(h.refs, ref)
	if len(h.refs) <= h.failUntil {
		if h.err != nil {
			return h.err
		}
		return errors.New("provider unreachable")
	}
	return nil
}

func (h *recordingHandler) calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.refs))
	copy(out, h.refs)
	return out
}

func alwaysOnline() bool  { return true }
func alwaysOffline() bool { return false }

func newProcessor(t *testing.T, online func() bool, handlers ...processor.Handler) (*processor.Processor, *queue.Queue) {
	t.Helper()
	q := queue.New(storage.NewMemoryStore(), zerolog.Nop())
	p := processor.New(q, processor.NewDispatch(handlers...), online, zerolog.Nop())
	return p, q
}

func TestProcessQueue_DrainsInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	handler := &recordingHandler{kind: operation.KindAirtime}
	p, q := newProcessor(t, alwaysOnline, handler)

	for _, ref := range []string{"ref-1", "ref-2", "ref-3"} {
		_, err := q.Enqueue(ctx, operation.KindAirtime, payload(ref))
		require.NoError(t, err)
	}

	require.NoError(t, p.ProcessQueue(ctx))

	assert.Equal(t, []string{"ref-1", "ref-2", "ref-3"}, handler.calls())

	ops, _ := q.List(ctx)
	for _, op := range ops {
		assert.Equal(t, operation.StatusCompleted, op.Status)
	}
}

func TestProcessQueue_OfflineIsNoOp(t *testing.T) {
	ctx := context.Background()
	handler := &recordingHandler{kind: operation.KindAirtime}
	p, q := newProcessor(t, alwaysOffline, handler)

	q.Enqueue(ctx, operation.KindAirtime, payload("ref-1"))
	require.NoError(t, p.ProcessQueue(ctx))

	assert.Empty(t, handler.calls())
	n, _ := q.CountPending(ctx)
	assert.Equal(t, 1, n)
}

func TestProcessQueue_FailureRequeuesForNextDrain(t *testing.T) {
	ctx := context.Background()
	handler := &recordingHandler{kind: operation.KindBillPayment, failUntil: 100}
	p, q := newProcessor(t, alwaysOnline, handler)

	op, err := q.Enqueue(ctx, operation.KindBillPayment, payload("ref-1"), queue.WithMaxRetries(2))
	require.NoError(t, err)

	// First drain: one attempt, requeued, no immediate re-attempt.
	require.NoError(t, p.ProcessQueue(ctx))
	assert.Len(t, handler.calls(), 1)

	stored, err := q.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusPending, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	require.NotNil(t, stored.ErrorMessage)
	assert.NotEmpty(t, *stored.ErrorMessage)

	// Second drain: retries exhausted, record fails permanently.
	require.NoError(t, p.ProcessQueue(ctx))
	assert.Len(t, handler.calls(), 2)

	stored, err = q.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusFailed, stored.Status)
	assert.Equal(t, 2, stored.RetryCount)
	require.NotNil(t, stored.ErrorMessage)

	// Further drains never touch a failed record.
	require.NoError(t, p.ProcessQueue(ctx))
	assert.Len(t, handler.calls(), 2)
}

func TestProcessQueue_ExactlyMaxRetriesAttempts(t *testing.T) {
	ctx := context.Background()
	handler := &recordingHandler{kind: operation.KindRemittance, failUntil: 100}
	p, q := newProcessor(t, alwaysOnline, handler)

	_, err := q.Enqueue(ctx, operation.KindRemittance, payload("ref-1"), queue.WithMaxRetries(3))
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		require.NoError(t, p.ProcessQueue(ctx))
	}
	assert.Len(t, handler.calls(), 3)
}

func TestProcessQueue_SuccessNeverRetried(t *testing.T) {
	ctx := context.Background()
	handler := &recordingHandler{kind: operation.KindSendMoney, failUntil: 1}
	p, q := newProcessor(t, alwaysOnline, handler)

	op, err := q.Enqueue(ctx, operation.KindSendMoney, payload("ref-1"))
	require.NoError(t, err)

	require.NoError(t, p.ProcessQueue(ctx)) // fails, requeued
	require.NoError(t, p.ProcessQueue(ctx)) // succeeds

	stored, err := q.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusCompleted, stored.Status)
	assert.Nil(t, stored.ErrorMessage)

	require.NoError(t, p.ProcessQueue(ctx))
	assert.Len(t, handler.calls(), 2)
}

func TestProcessQueue_FailureDoesNotStopThePass(t *testing.T) {
	ctx := context.Background()
	failing := &recordingHandler{kind: operation.KindBillPayment, failUntil: 100}
	succeeding := &recordingHandler{kind: operation.KindAirtime}
	p, q := newProcessor(t, alwaysOnline, failing, succeeding)

	q.Enqueue(ctx, operation.KindBillPayment, payload("ref-1"))
	q.Enqueue(ctx, operation.KindAirtime, payload("ref-2"))

	require.NoError(t, p.ProcessQueue(ctx))

	assert.Len(t, failing.calls(), 1)
	assert.Len(t, succeeding.calls(), 1)
}

func TestProcessQueue_MissingHandlerCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	p, q := newProcessor(t, alwaysOnline) // empty dispatch table

	op, err := q.Enqueue(ctx, operation.KindDataBundle, payload("ref-1"), queue.WithMaxRetries(1))
	require.NoError(t, err)

	require.NoError(t, p.ProcessQueue(ctx))

	stored, err := q.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "no handler registered")
}

func TestProcessQueue_SingleFlight(t *testing.T) {
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	invocations := 0

	blocking := processor.NewHandlerFunc(operation.KindAirtime, func(context.Context, map[string]any) error {
		mu.Lock()
		invocations++
		if invocations == 1 {
			mu.Unlock()
			close(started)
			<-release
			return nil
		}
		mu.Unlock()
		return nil
	})

	p, q := newProcessor(t, alwaysOnline, blocking)
	_, err := q.Enqueue(ctx, operation.KindAirtime, payload("ref-1"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.ProcessQueue(ctx) }()
	<-started

	// Second call while the first drain is blocked inside the handler:
	// must return immediately without touching any record.
	require.NoError(t, p.ProcessQueue(ctx))

	close(release)
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, invocations)
}

func TestRetryOperation_ResetsAndAttemptsEagerly(t *testing.T) {
	ctx := context.Background()
	handler := &recordingHandler{kind: operation.KindSendMoney, failUntil: 1}
	p, q := newProcessor(t, alwaysOnline, handler)

	op, err := q.Enqueue(ctx, operation.KindSendMoney, payload("ref-1"), queue.WithMaxRetries(1))
	require.NoError(t, err)

	require.NoError(t, p.ProcessQueue(ctx))
	stored, _ := q.Get(ctx, op.ID)
	require.Equal(t, operation.StatusFailed, stored.Status)

	// Manual retry resets the counter and attempts once immediately; the
	// handler succeeds on its second call.
	refreshed, err := p.RetryOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusCompleted, refreshed.Status)
	assert.Nil(t, refreshed.ErrorMessage)
	assert.Len(t, handler.calls(), 2)
}

func TestRetryOperation_ResetBeforeAttempt(t *testing.T) {
	ctx := context.Background()
	handler := &recordingHandler{kind: operation.KindSendMoney, failUntil: 100}
	p, q := newProcessor(t, alwaysOnline, handler)

	op, err := q.Enqueue(ctx, operation.KindSendMoney, payload("ref-1"), queue.WithMaxRetries(3))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.ProcessQueue(ctx))
	}
	stored, _ := q.Get(ctx, op.ID)
	require.Equal(t, operation.StatusFailed, stored.Status)
	require.Equal(t, 3, stored.RetryCount)

	// The eager attempt fails again, so the record lands back on pending
	// with a retry count restarted from zero.
	refreshed, err := p.RetryOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, operation.StatusPending, refreshed.Status)
	assert.Equal(t, 1, refreshed.RetryCount)
}

func TestRetryOperation_RejectsNonFailed(t *testing.T) {
	ctx := context.Background()
	handler := &recordingHandler{kind: operation.KindAirtime}
	p, q := newProcessor(t, alwaysOnline, handler)

	op, err := q.Enqueue(ctx, operation.KindAirtime, payload("ref-1"))
	require.NoError(t, err)

	_, err = p.RetryOperation(ctx, op.ID)
	assert.ErrorIs(t, err, domainErrors.ErrNotRetryable)
}

func TestRetryOperation_UnknownID(t *testing.T) {
	ctx := context.Background()
	p, _ := newProcessor(t, alwaysOnline)

	_, err := p.RetryOperation(ctx, "missing")
	assert.ErrorIs(t, err, domainErrors.ErrOperationNotFound)
}

func TestScenario_EnqueueOfflineThenReconnect(t *testing.T) {
	ctx := context.Background()
	handler := &recordingHandler{kind: operation.KindAirtime}

	online := false
	p, q := newProcessor(t, func() bool { return online }, handler)

	for _, ref := range []string{"ref-1", "ref-2", "ref-3"} {
		_, err := q.Enqueue(ctx, operation.KindAirtime, payload(ref))
		require.NoError(t, err)
	}

	// Offline drain leaves everything pending.
	require.NoError(t, p.ProcessQueue(ctx))
	n, _ := q.CountPending(ctx)
	require.Equal(t, 3, n)

	// Connectivity returns.
	online = true
	require.NoError(t, p.ProcessQueue(ctx))

	assert.Equal(t, []string{"ref-1", "ref-2", "ref-3"}, handler.calls())
	n, _ = q.CountPending(ctx)
	assert.Equal(t, 0, n)
}
