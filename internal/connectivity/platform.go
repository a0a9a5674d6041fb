package connectivity

import "context"

// Status is the platform's view of device connectivity. Reachable is nil
// when the platform cannot tell whether the network actually routes
// traffic.
type Status struct {
	Connected bool   `json:"connected"`
	Reachable *bool  `json:"reachable"`
	Type      string `json:"type"`
}

// Platform is the host connectivity source: the device network stack, or a
// simulated one in tests and cmd/simulator.
type Platform interface {
	// FetchCurrentState performs a fresh connectivity query.
	FetchCurrentState(ctx context.Context) (Status, error)

	// Subscribe registers a callback for connectivity change events and
	// returns its de-registration function.
	Subscribe(fn func(Status)) (unsubscribe func())
}
