package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"media-filter/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
	statusDown     = "unhealthy"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Ready      bool   `json:"ready"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	Database   string `json:"database"`
	Processing bool   `json:"processing"`

	Sessions      int `json:"sessions"`
	Handles       int `json:"handles"`
	PushListeners int `json:"pushListeners"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Upload summary
	TotalUploads int `json:"totalUploads"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
}

func (h *Handlers) pingDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.db.Ping(ctx)
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Database:     "ok",
		Processing:   h.transcoder.IsEnabled(),
		Sessions:     h.sessions.Len(),
		Handles:      h.sessions.Registry().Len(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if h.hub != nil {
		response.PushListeners = h.hub.ClientCount()
	}

	statusCode := http.StatusOK
	if err := h.pingDatabase(r.Context()); err != nil {
		response.Database = err.Error()
		response.Status = statusDown
		statusCode = http.StatusServiceUnavailable
	} else {
		response.Ready = true
		stats := h.db.GetStats()
		response.TotalUploads = stats.TotalUploads
		response.Completed = stats.Completed
		response.Failed = stats.Failed

		response.Status = statusHealthy
		if !response.Processing {
			response.Status = statusDegraded
		}
	}

	writeJSONStatusCode(w, statusCode, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the database answers
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingDatabase(r.Context()); err != nil {
		writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
		})
		return
	}
	writeJSONStatus(w, "ready")
}
