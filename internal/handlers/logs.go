package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/promptlyai/loglens/internal/services"
)

var errMissingQuery = errors.New("either error_text or log is required")

type LogsHandler struct {
	ingest services.IngestService
	batch  services.BatchService
	match  services.MatchService
	search services.SearchService
}

func NewLogsHandler(
	ingest services.IngestService,
	batch services.BatchService,
	match services.MatchService,
	search services.SearchService,
) *LogsHandler {
	return &LogsHandler{
		ingest: ingest,
		batch:  batch,
		match:  match,
		search: search,
	}
}

type ingestRequest struct {
	Log []map[string]any `json:"log"`
}

// POST /logs/ingest
func (h *LogsHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result, err := h.ingest.Ingest(c.Request.Context(), req.Log)
	if err != nil {
		RespondPipelineError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"log_id":    result.LogID,
		"ticket_id": result.TicketID,
	})
}

type batchIngestRequest struct {
	Logs [][]map[string]any `json:"logs"`
}

// POST /logs/ingest/batch
func (h *LogsHandler) IngestBatch(c *gin.Context) {
	var req batchIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	jobID, err := h.batch.Enqueue(c.Request.Context(), req.Logs)
	if err != nil {
		RespondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

type matchRequest struct {
	ErrorText string          `json:"error_text"`
	Log       json.RawMessage `json:"log"`
	TopK      int             `json:"top_k"`
}

// POST /logs/match
//
// The query is one of: error_text (free text), log as an array of raw entries
// (routed through the LLM normalizer), or log as a single flat object
// (resolved locally via the alias tables, no model call).
func (h *LogsHandler) Match(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	ctx := c.Request.Context()
	if strings.TrimSpace(req.ErrorText) != "" {
		decision, err := h.match.MatchText(ctx, req.ErrorText, req.TopK)
		if err != nil {
			RespondPipelineError(c, err)
			return
		}
		RespondOK(c, decision)
		return
	}

	switch firstJSONByte(req.Log) {
	case '[':
		var entries []map[string]any
		if err := json.Unmarshal(req.Log, &entries); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		decision, err := h.match.MatchRecord(ctx, entries, req.TopK)
		if err != nil {
			RespondPipelineError(c, err)
			return
		}
		RespondOK(c, decision)
	case '{':
		var attrs map[string]any
		if err := json.Unmarshal(req.Log, &attrs); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		decision, err := h.match.MatchAttributes(ctx, attrs, req.TopK)
		if err != nil {
			RespondPipelineError(c, err)
			return
		}
		RespondOK(c, decision)
	default:
		RespondError(c, http.StatusBadRequest, "invalid_request", errMissingQuery)
	}
}

// firstJSONByte returns the first non-whitespace byte of a raw JSON value, or
// zero for empty/null input.
func firstJSONByte(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

type searchRequest struct {
	Log  []map[string]any `json:"log"`
	TopN int              `json:"top_n"`
}

// POST /logs/search
func (h *LogsHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	matches, err := h.search.Search(c.Request.Context(), req.Log, req.TopN)
	if err != nil {
		RespondPipelineError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"matches": matches,
		"count":   len(matches),
	})
}
