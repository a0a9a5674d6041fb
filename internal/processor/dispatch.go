package processor

import (
	"context"

	"github.com/cassiomorais/offlinepay/internal/domain/operation"
)

// Handler performs the backend call for one operation kind. Implementations
// live in the payment/backend-client layer; the processor only requires
// that failure is signaled by a non-nil error carrying a readable message.
// Handlers should pass through the stable reference embedded in the payload
// so backend-side replays of the same record are safe.
type Handler interface {
	Kind() operation.Kind
	Handle(ctx context.Context, payload map[string]any) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc struct {
	kind operation.Kind
	fn   func(ctx context.Context, payload map[string]any) error
}

func NewHandlerFunc(kind operation.Kind, fn func(ctx context.Context, payload map[string]any) error) HandlerFunc {
	return HandlerFunc{kind: kind, fn: fn}
}

func (h HandlerFunc) Kind() operation.Kind { return h.kind }

func (h HandlerFunc) Handle(ctx context.Context, payload map[string]any) error {
	return h.fn(ctx, payload)
}

// Dispatch is a static registration table mapping operation kinds to their
// handlers. Populated once at startup; not safe for concurrent mutation
// afterwards.
type Dispatch struct {
	handlers map[operation.Kind]Handler
}

func NewDispatch(handlers ...Handler) *Dispatch {
	d := &Dispatch{handlers: make(map[operation.Kind]Handler)}
	for _, h := range handlers {
		d.Register(h)
	}
	return d
}

// Register binds a handler to its kind, replacing any previous binding.
func (d *Dispatch) Register(h Handler) {
	d.handlers[h.Kind()] = h
}

func (d *Dispatch) Get(kind operation.Kind) (Handler, bool) {
	h, ok := d.handlers[kind]
	return h, ok
}

// Kinds returns the kinds with a registered handler.
func (d *Dispatch) Kinds() []operation.Kind {
	kinds := make([]operation.Kind, 0, len(d.handlers))
	for k := range d.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}
