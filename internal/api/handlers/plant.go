package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"seawatch-worker-go/internal/logging"
	"seawatch-worker-go/internal/models"
)

// PlantAnalyzer runs plant health analyses.
type PlantAnalyzer interface {
	AnalyzePlant(ctx context.Context) (models.PlantReport, error)
	LatestPlantReport() (models.PlantReport, bool)
}

type PlantHandler struct {
	analyzer PlantAnalyzer
}

func NewPlantHandler(analyzer PlantAnalyzer) *PlantHandler {
	return &PlantHandler{analyzer: analyzer}
}

// @Summary Analyze plant health
// @Description Read the plant sensors, score them and snapshot the plant camera
// @Tags plant
// @Produce json
// @Success 200 {object} models.PlantReport
// @Failure 500 {object} ErrorResponse
// @Router /plant/analyze [post]
func (h *PlantHandler) Analyze(c *gin.Context) {
	report, err := h.analyzer.AnalyzePlant(c.Request.Context())
	if err != nil {
		logging.Error(c).Err(err).Msg("Plant analysis failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary Latest plant report
// @Tags plant
// @Produce json
// @Success 200 {object} models.PlantReport
// @Failure 404 {object} ErrorResponse
// @Router /plant/latest [get]
func (h *PlantHandler) Latest(c *gin.Context) {
	report, ok := h.analyzer.LatestPlantReport()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no plant analysis yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}
