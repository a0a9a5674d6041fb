// Package providers holds the dispatch-facing adapter layer between the
// queue processor and the external payment providers. The real
// Paystack/Stripe/Flutterwave SDK wrappers plug in behind the Provider
// interface; mocks stand in for them in tests and the simulator.
package providers

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/offlinepay/internal/domain/errors"
	"github.com/cassiomorais/offlinepay/internal/domain/operation"
	"github.com/go-playground/validator/v10"
)

type Result struct {
	ProviderReference string
	Status            string // "success", "failed", "pending"
	ErrorMessage      string
}

type Provider interface {
	// Name returns the provider name.
	Name() string
	// Execute performs one queued operation through the provider.
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Request is what a provider receives for one queued operation. Reference
// is the caller's stable idempotency key, lifted out of the payload so
// every provider passes it through on replays.
type Request struct {
	Kind      operation.Kind `validate:"required"`
	Reference string         `validate:"required"`
	Payload   map[string]any `validate:"required"`
}

var validate = validator.New()

// requiredFields lists the payload fields each kind must carry before the
// provider is called. The queue itself never inspects payloads; this is the
// boundary where they stop being opaque.
var requiredFields = map[operation.Kind][]string{
	operation.KindSendMoney:   {"amount", "currency", "recipient"},
	operation.KindAirtime:     {"amount", "phone"},
	operation.KindDataBundle:  {"phone", "bundle_code"},
	operation.KindBillPayment: {"amount", "biller_code", "customer_id"},
	operation.KindRemittance:  {"amount", "source_currency", "target_currency", "recipient"},
}

// BuildRequest lifts a queue payload into a provider request, validating
// the reference and the kind-specific required fields.
func BuildRequest(kind operation.Kind, payload map[string]any) (Request, error) {
	reference, _ := payload["reference"].(string)
	req := Request{
		Kind:      kind,
		Reference: reference,
		Payload:   payload,
	}

	if err := validate.Struct(req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", domainErrors.ErrValidationFailed, err)
	}
	for _, field := range requiredFields[kind] {
		if err := validate.Var(payload[field], "required"); err != nil {
			return Request{}, fmt.Errorf("%w: payload field %q is required for %s",
				domainErrors.ErrValidationFailed, field, kind)
		}
	}
	return req, nil
}
