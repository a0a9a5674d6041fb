package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	domainErrors "github.com/cassiomorais/offlinepay/internal/domain/errors"
	"github.com/cassiomorais/offlinepay/internal/domain/operation"
	"github.com/cassiomorais/offlinepay/internal/processor"
	"github.com/cassiomorais/offlinepay/internal/queue"
)

// QueueController exposes the durable operation queue for inspection and
// manual intervention. Enqueues accepted here follow the same path as
// programmatic ones, so a drain picks them up on the next reconnect.
type QueueController struct {
	queue     *queue.Queue
	processor *processor.Processor
	retention time.Duration
}

func NewQueueController(q *queue.Queue, p *processor.Processor, retention time.Duration) *QueueController {
	return &QueueController{queue: q, processor: p, retention: retention}
}

func (c *QueueController) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	kind, err := operation.ParseKind(req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}

	var opts []queue.EnqueueOption
	if req.MaxRetries > 0 {
		opts = append(opts, queue.WithMaxRetries(req.MaxRetries))
	}

	op, err := c.queue.Enqueue(r.Context(), kind, req.Payload, opts...)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOperationResponse(op))
}

func (c *QueueController) List(w http.ResponseWriter, r *http.Request) {
	ops, err := c.queue.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := QueueListResponse{Operations: make([]OperationResponse, 0, len(ops)), Total: len(ops)}
	for _, op := range ops {
		resp.Operations = append(resp.Operations, toOperationResponse(op))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *QueueController) Get(w http.ResponseWriter, r *http.Request) {
	op, err := c.queue.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationResponse(op))
}

func (c *QueueController) Remove(w http.ResponseWriter, r *http.Request) {
	if err := c.queue.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *QueueController) PendingCount(w http.ResponseWriter, r *http.Request) {
	count, err := c.queue.CountPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PendingCountResponse{Pending: count})
}

func (c *QueueController) Retry(w http.ResponseWriter, r *http.Request) {
	op, err := c.processor.RetryOperation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationResponse(op))
}

func (c *QueueController) Drain(w http.ResponseWriter, r *http.Request) {
	if err := c.processor.ProcessQueue(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (c *QueueController) Sweep(w http.ResponseWriter, r *http.Request) {
	olderThan := c.retention
	if r.ContentLength != 0 {
		var req SweepRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.OlderThan != "" {
			d, err := time.ParseDuration(req.OlderThan)
			if err != nil {
				writeError(w, fmt.Errorf("%w: older_than: %s", domainErrors.ErrInvalidInput, err.Error()))
				return
			}
			olderThan = d
		}
	}

	removed, err := c.queue.Sweep(r.Context(), olderThan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{Removed: removed})
}
