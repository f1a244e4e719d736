package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mobilitics/mobility-analytics-go/internal/repository"
	"github.com/mobilitics/mobility-analytics-go/internal/service"
	"github.com/mobilitics/mobility-analytics-go/pkg/response"
)

// JobHandler handles HTTP requests for anonymization jobs
type JobHandler struct {
	service *service.AnonymizationService
}

// NewJobHandler creates a new job handler
func NewJobHandler(service *service.AnonymizationService) *JobHandler {
	return &JobHandler{service: service}
}

// StartJob handles POST /api/v1/anonymization/jobs
func (h *JobHandler) StartJob(c *gin.Context) {
	job, err := h.service.StartJob()
	if err != nil {
		if errors.Is(err, repository.ErrJobActive) {
			response.Error(c, http.StatusConflict, "An anonymization job is already running", nil)
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to start anonymization job", err)
		return
	}

	response.Success(c, job)
}

// GetJob handles GET /api/v1/anonymization/jobs/:reference
func (h *JobHandler) GetJob(c *gin.Context) {
	reference := c.Param("reference")

	job, err := h.service.GetJob(reference)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to get job", err)
		return
	}
	if job == nil {
		response.Error(c, http.StatusNotFound, "Job not found", nil)
		return
	}

	response.Success(c, job)
}
