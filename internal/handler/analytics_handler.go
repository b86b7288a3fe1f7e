package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nutricare-ph/nutricare-api/internal/service"
	"github.com/nutricare-ph/nutricare-api/pkg/response"
)

// AnalyticsHandler exposes the malnutrition analytics endpoints.
type AnalyticsHandler struct {
	distribution *service.DistributionService
	progress     *service.ProgressService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(distribution *service.DistributionService, progress *service.ProgressService) *AnalyticsHandler {
	return &AnalyticsHandler{distribution: distribution, progress: progress}
}

// Distribution godoc
// @Summary Severity distribution across the monitored population
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/distribution [get]
func (h *AnalyticsHandler) Distribution(c *gin.Context) {
	report, cacheHit, err := h.distribution.Report(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{"cache": cacheHit})
}

// Progress godoc
// @Summary Month-bucketed progress over the trailing window
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/progress [get]
func (h *AnalyticsHandler) Progress(c *gin.Context) {
	report, cacheHit, err := h.progress.Report(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{"cache": cacheHit})
}

// PatientTrend godoc
// @Summary Full-history trend for one patient
// @Tags Analytics
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/patients/{id}/trend [get]
func (h *AnalyticsHandler) PatientTrend(c *gin.Context) {
	trend, err := h.progress.PatientTrend(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trend, nil)
}

// MapData godoc
// @Summary Per-barangay classification counts for the coverage map
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/map [get]
func (h *AnalyticsHandler) MapData(c *gin.Context) {
	points, err := h.distribution.MapData(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, points, nil)
}
