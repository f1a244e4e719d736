package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mobilitics/mobility-analytics-go/internal/models"
	"github.com/mobilitics/mobility-analytics-go/internal/service"
	"github.com/mobilitics/mobility-analytics-go/pkg/response"
)

// AggregateHandler handles HTTP requests for anonymized aggregate
// products. Results already carry differential-privacy noise when they
// reach this layer; the handler only binds filters and serializes.
type AggregateHandler struct {
	service *service.AggregateService
}

// NewAggregateHandler creates a new aggregate handler
func NewAggregateHandler(service *service.AggregateService) *AggregateHandler {
	return &AggregateHandler{service: service}
}

// GetODMatrix handles GET /api/v1/aggregates/od-matrix
func (h *AggregateHandler) GetODMatrix(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	entries, err := h.service.ODMatrix(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to build OD matrix", err)
		return
	}

	response.Success(c, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetHeatmap handles GET /api/v1/aggregates/heatmap
func (h *AggregateHandler) GetHeatmap(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	entries, err := h.service.Heatmap(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to build heatmap", err)
		return
	}

	response.Success(c, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetTripChains handles GET /api/v1/aggregates/trip-chains
func (h *AggregateHandler) GetTripChains(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	result, err := h.service.TripChains(filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to mine trip chains", err)
		return
	}

	response.Success(c, result)
}

func bindFilter(c *gin.Context) (models.AggregateFilter, bool) {
	var filter models.AggregateFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return filter, false
	}
	if filter.AggregationLevel == "" {
		filter.AggregationLevel = models.AggregationZone
	}
	return filter, true
}
