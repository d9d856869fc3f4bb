package rest

import (
	"net/http"
	"time"

	"github.com/philly/ipcbus/internal/platform/eventbus"
	"github.com/philly/ipcbus/internal/platform/transport/wstransport"
)

// Health states
const (
	Healthy  = "healthy"
	Degraded = "degraded"
)

// SatelliteStatusSource reports the coordinator's satellite links.
type SatelliteStatusSource interface {
	Status() []wstransport.PeerStatus
}

// HealthStatus is the body of both probes.
type HealthStatus struct {
	Status     string                   `json:"status"`
	Timestamp  time.Time                `json:"timestamp"`
	Version    string                   `json:"version"`
	Role       string                   `json:"role,omitempty"`
	Satellites []wstransport.PeerStatus `json:"satellites,omitempty"`
}

type HealthHandler struct {
	*BaseHandler
	version    string
	role       eventbus.Role
	satellites SatelliteStatusSource
}

func NewHealthHandler(base *BaseHandler, version string, role eventbus.Role, satellites SatelliteStatusSource) *HealthHandler {
	return &HealthHandler{
		BaseHandler: base,
		version:     version,
		role:        role,
		satellites:  satellites,
	}
}

// GetLiveness implements the liveness probe endpoint
// This is a lightweight check with no external dependencies
func (h *HealthHandler) GetLiveness(w http.ResponseWriter, r *http.Request) {
	h.WriteJSONResponse(w, r, HealthStatus{
		Status:    Healthy,
		Timestamp: time.Now(),
		Version:   h.version,
	}, http.StatusOK)
}

// GetReadiness reports every configured satellite link. The coordinator
// is ready as soon as it serves; missing satellites only degrade it.
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	resp := HealthStatus{
		Status:    Healthy,
		Timestamp: time.Now(),
		Version:   h.version,
		Role:      h.role.String(),
	}
	if h.satellites != nil {
		resp.Satellites = h.satellites.Status()
		for _, s := range resp.Satellites {
			if !s.Connected {
				resp.Status = Degraded
				break
			}
		}
	}

	h.WriteJSONResponse(w, r, resp, http.StatusOK)
}
