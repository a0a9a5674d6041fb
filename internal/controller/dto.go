package controller

import (
	"time"

	"github.com/cassiomorais/offlinepay/internal/domain/operation"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type EnqueueRequest struct {
	Kind       string         `json:"kind" validate:"required"`
	Payload    map[string]any `json:"payload" validate:"required"`
	MaxRetries int            `json:"max_retries,omitempty" validate:"omitempty,min=1,max=10"`
}

type OperationResponse struct {
	ID           string         `json:"id"`
	Kind         string         `json:"kind"`
	Payload      map[string]any `json:"payload"`
	Status       string         `json:"status"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

func toOperationResponse(op *operation.Operation) OperationResponse {
	return OperationResponse{
		ID:           op.ID,
		Kind:         string(op.Kind),
		Payload:      op.Payload,
		Status:       string(op.Status),
		RetryCount:   op.RetryCount,
		MaxRetries:   op.MaxRetries,
		ErrorMessage: op.ErrorMessage,
		CreatedAt:    op.CreatedAt,
		UpdatedAt:    op.UpdatedAt,
		CompletedAt:  op.CompletedAt,
	}
}

type QueueListResponse struct {
	Operations []OperationResponse `json:"operations"`
	Total      int                 `json:"total"`
}

type PendingCountResponse struct {
	Pending int `json:"pending"`
}

type SweepRequest struct {
	OlderThan string `json:"older_than,omitempty"`
}

type SweepResponse struct {
	Removed int `json:"removed"`
}

type NetworkResponse struct {
	Online    bool   `json:"online"`
	Reachable *bool  `json:"reachable,omitempty"`
	Type      string `json:"type,omitempty"`
}

type CacheEntryResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
