package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"seawatch-worker-go/internal/logging"
	"seawatch-worker-go/internal/models"
	"seawatch-worker-go/internal/services/annotation"
)

const wsWriteTimeout = 5 * time.Second

// DetectionController starts and stops the annotation loop.
type DetectionController interface {
	StartDetection(ctx context.Context) error
	StopDetection() error
	DetectionStatus() models.DetectionStatusResponse
}

// StateSource provides the latest verdict and live updates.
type StateSource interface {
	Latest() models.AnnotationState
	Subscribe() (<-chan models.AnnotationState, func())
}

// StreamPublisher writes an MJPEG stream of annotated frames.
type StreamPublisher interface {
	StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request)
}

type DetectionHandler struct {
	controller DetectionController
	states     StateSource
	stream     StreamPublisher
	upgrader   websocket.Upgrader
}

func NewDetectionHandler(controller DetectionController, states StateSource, stream StreamPublisher) *DetectionHandler {
	return &DetectionHandler{
		controller: controller,
		states:     states,
		stream:     stream,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GetStatus godoc
// @Summary Detection status
// @Description Get the annotation loop state and the latest verdict
// @Tags detection
// @Produce json
// @Success 200 {object} models.DetectionStatusResponse
// @Router /detection/status [get]
func (h *DetectionHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.DetectionStatus())
}

// @Summary Start detection
// @Description Open the plastic camera, load the model and start annotating frames
// @Tags detection
// @Produce json
// @Success 200 {object} models.DetectionStatusResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /detection/start [post]
func (h *DetectionHandler) Start(c *gin.Context) {
	err := h.controller.StartDetection(c.Request.Context())
	var loadErr *annotation.ModelLoadError
	switch {
	case err == nil:
	case errors.Is(err, models.ErrDetectionRunning):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	case errors.As(err, &loadErr):
		logging.Error(c).Err(err).Msg("Failed to load detection model")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	default:
		logging.Error(c).Err(err).Msg("Failed to start detection")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Msg("Detection started")
	c.JSON(http.StatusOK, h.controller.DetectionStatus())
}

// @Summary Stop detection
// @Description Stop the annotation loop; the verdict returns to pending
// @Tags detection
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /detection/stop [post]
func (h *DetectionHandler) Stop(c *gin.Context) {
	if err := h.controller.StopDetection(); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	logging.Info(c).Msg("Detection stopped")
	c.JSON(http.StatusOK, SuccessResponse{Message: "Detection stopped"})
}

// @Summary Annotated video stream
// @Description MJPEG stream of annotated frames (multipart/x-mixed-replace)
// @Tags detection
// @Produce multipart/x-mixed-replace
// @Success 200
// @Router /detection/stream [get]
func (h *DetectionHandler) Stream(c *gin.Context) {
	h.stream.StreamMJPEGHTTP(c.Writer, c.Request)
}

// @Summary Live verdicts
// @Description WebSocket pushing the verdict of every annotated frame as JSON
// @Tags detection
// @Router /detection/ws [get]
func (h *DetectionHandler) WebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c).Err(err).Msg("websocket_upgrade_failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.states.Subscribe()
	defer cancel()

	// reads only detect the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logging.Debug(c).Str("remote", conn.RemoteAddr().String()).Msg("websocket_client_connected")
	if err := writeState(conn, h.states.Latest()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			logging.Debug(c).Msg("websocket_client_disconnected")
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := writeState(conn, st); err != nil {
				logging.Debug(c).Err(err).Msg("websocket_write_failed")
				return
			}
		}
	}
}

func writeState(conn *websocket.Conn, st models.AnnotationState) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(st)
}
