package controller

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cassiomorais/offlinepay/internal/storage"
)

type HealthController struct {
	store   storage.Store
	version string
}

func NewHealthController(store storage.Store, version string) *HealthController {
	return &HealthController{store: store, version: version}
}

func (c *HealthController) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: c.version})
}

// Readiness probes the backing store with a cheap read. A store that cannot
// serve the operations collection means queued work would not survive a
// restart, so the instance reports unready.
func (c *HealthController) Readiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}
	status := http.StatusOK

	if _, err := c.store.ReadCollection(r.Context(), storage.CollectionOperations); err != nil {
		log.Warn().Err(err).Msg("store readiness check failed")
		checks["store"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	body := HealthResponse{Status: "ok", Version: c.version, Checks: checks}
	if status != http.StatusOK {
		body.Status = "degraded"
	}
	writeJSON(w, status, body)
}
