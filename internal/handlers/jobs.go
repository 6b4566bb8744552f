package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/promptlyai/loglens/internal/services"
)

type JobsHandler struct {
	batch services.BatchService
}

func NewJobsHandler(batch services.BatchService) *JobsHandler {
	return &JobsHandler{batch: batch}
}

// GET /jobs/:id
func (h *JobsHandler) GetJobByID(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("missing job id"))
		return
	}
	job, err := h.batch.Status(c.Request.Context(), jobID)
	if err != nil {
		RespondPipelineError(c, err)
		return
	}
	RespondOK(c, job)
}
