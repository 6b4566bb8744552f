package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/promptlyai/loglens/internal/services"
)

type StatsHandler struct {
	stats services.StatsService
}

func NewStatsHandler(stats services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GET /stats
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		RespondPipelineError(c, err)
		return
	}
	RespondOK(c, stats)
}
