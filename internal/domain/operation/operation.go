package operation

import (
	"fmt"
	"time"

	"github.com/cassiomorais/offlinepay/internal/domain/errors"
	"github.com/google/uuid"
)

// Kind identifies which backend handler processes a queued operation.
type Kind string

const (
	KindSendMoney   Kind = "send_money"
	KindAirtime     Kind = "airtime"
	KindDataBundle  Kind = "data_bundle"
	KindBillPayment Kind = "bill_payment"
	KindRemittance  Kind = "remittance"
)

// Kinds returns the closed set of supported operation kinds.
func Kinds() []Kind {
	return []Kind{KindSendMoney, KindAirtime, KindDataBundle, KindBillPayment, KindRemittance}
}

// ParseKind validates a raw kind string against the closed set.
func ParseKind(raw string) (Kind, error) {
	k := Kind(raw)
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", errors.ErrInvalidOperationKind, raw)
}

// Status represents the operation status in the state machine
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DefaultMaxRetries is the retry ceiling applied when the caller does not set one.
const DefaultMaxRetries = 3

// Operation is a durable record of a deferred financial operation. The
// payload is opaque to the queue and passed verbatim to the handler.
type Operation struct {
	ID           string         `json:"id"`
	Kind         Kind           `json:"kind"`
	Payload      map[string]any `json:"payload"`
	Status       Status         `json:"status"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// New creates a pending operation with a fresh ID.
func New(kind Kind, payload map[string]any, maxRetries int) (*Operation, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, errors.ErrEmptyPayload
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	now := time.Now()
	return &Operation{
		ID:         newID(now),
		Kind:       kind,
		Payload:    payload,
		Status:     StatusPending,
		RetryCount: 0,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// newID builds a unique, roughly time-ordered identifier.
func newID(now time.Time) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), uuid.New().String()[:8])
}

// CanTransitionTo checks if the operation can transition to the given status
func (o *Operation) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {
			StatusProcessing,
		},
		StatusProcessing: {
			StatusCompleted,
			StatusPending, // Retry on a later drain
			StatusFailed,
		},
		StatusFailed: {
			StatusPending, // Manual retry only
		},
		StatusCompleted: {}, // Terminal state
	}

	allowed, exists := transitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the operation to a new status
func (o *Operation) TransitionTo(newStatus Status) error {
	if !o.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(o.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}

	o.Status = newStatus
	o.UpdatedAt = time.Now()

	if newStatus == StatusCompleted || newStatus == StatusFailed {
		now := time.Now()
		o.CompletedAt = &now
	}

	return nil
}

// MarkProcessing transitions the operation to processing status
func (o *Operation) MarkProcessing() error {
	return o.TransitionTo(StatusProcessing)
}

// MarkCompleted transitions the operation to completed status and clears any
// error left by previous failed attempts.
func (o *Operation) MarkCompleted() error {
	if err := o.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	o.ErrorMessage = nil
	return nil
}

// RecordFailure increments the retry counter after a failed processing
// attempt. Reaching the ceiling transitions the operation to failed in the
// same step; otherwise it goes back to pending and stays eligible for the
// next drain. Returns true when the operation became terminal.
func (o *Operation) RecordFailure(errorMsg string) (bool, error) {
	o.RetryCount++
	o.ErrorMessage = &errorMsg

	if o.RetryCount >= o.MaxRetries {
		if err := o.TransitionTo(StatusFailed); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := o.TransitionTo(StatusPending); err != nil {
		return false, err
	}
	return false, nil
}

// ResetForRetry moves a failed operation back to pending for a manual retry.
func (o *Operation) ResetForRetry() error {
	if o.Status != StatusFailed {
		return errors.ErrNotRetryable
	}
	if err := o.TransitionTo(StatusPending); err != nil {
		return err
	}
	o.RetryCount = 0
	o.ErrorMessage = nil
	o.CompletedAt = nil
	return nil
}

// IsTerminal checks if the operation is in a terminal state for automatic
// processing. failed is terminal until a caller explicitly retries it.
func (o *Operation) IsTerminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusFailed
}

// CanRetry checks if the operation is eligible for a manual retry
func (o *Operation) CanRetry() bool {
	return o.Status == StatusFailed
}

// Clone returns a deep-enough copy for handing records across API
// boundaries without sharing mutable state.
func (o *Operation) Clone() *Operation {
	dup := *o
	dup.Payload = make(map[string]any, len(o.Payload))
	for k, v := range o.Payload {
		dup.Payload[k] = v
	}
	if o.ErrorMessage != nil {
		msg := *o.ErrorMessage
		dup.ErrorMessage = &msg
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		dup.CompletedAt = &t
	}
	return &dup
}
