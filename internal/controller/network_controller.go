package controller

import (
	"net/http"

	"github.com/cassiomorais/offlinepay/internal/connectivity"
)

type NetworkController struct {
	monitor *connectivity.Monitor
}

func NewNetworkController(m *connectivity.Monitor) *NetworkController {
	return &NetworkController{monitor: m}
}

func (c *NetworkController) Status(w http.ResponseWriter, r *http.Request) {
	status := c.monitor.NetworkStatus(r.Context())
	writeJSON(w, http.StatusOK, NetworkResponse{
		Online:    status.Connected,
		Reachable: status.Reachable,
		Type:      status.Type,
	})
}
