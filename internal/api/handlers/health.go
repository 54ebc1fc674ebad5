package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConnectionChecker reports whether an outbound connection is up.
type ConnectionChecker interface {
	IsConnected() bool
}

type HealthHandler struct {
	StationID string
	Version   string

	messaging ConnectionChecker
}

// NewHealthHandler builds the handler. messaging is nil when alerts are off.
func NewHealthHandler(stationID, version string, messaging ConnectionChecker) *HealthHandler {
	return &HealthHandler{StationID: stationID, Version: version, messaging: messaging}
}

type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	StationID string `json:"station_id" example:"station-1"`
	NATS      string `json:"nats,omitempty" example:"connected"`
}

type WorkerInfoResponse struct {
	StationID    string   `json:"station_id" example:"station-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the worker is healthy and responsive. The worker is degraded while the alert connection is down.
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		StationID: h.StationID,
	}
	if h.messaging != nil {
		resp.NATS = "connected"
		if !h.messaging.IsConnected() {
			resp.NATS = "disconnected"
			resp.Status = "degraded"
		}
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		StationID: h.StationID,
		Status:    "running",
		Version:   h.Version,
		Capabilities: []string{
			"plastic_detection",
			"mjpeg_streaming",
			"verdict_websocket",
			"plant_health",
		},
	})
}
