package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/jobs"
	"github.com/promptlyai/loglens/internal/services"
)

type fakeIngest struct {
	result *services.IngestResult
	err    error
}

func (f *fakeIngest) Ingest(context.Context, []map[string]any) (*services.IngestResult, error) {
	return f.result, f.err
}

type fakeBatch struct {
	jobID string
	job   *jobs.Job
	err   error
}

func (f *fakeBatch) Enqueue(context.Context, [][]map[string]any) (string, error) {
	return f.jobID, f.err
}

func (f *fakeBatch) Status(context.Context, string) (*jobs.Job, error) {
	return f.job, f.err
}

type fakeMatch struct {
	decision   *domain.MatchDecision
	err        error
	gotText    string
	gotTopK    int
	gotAttrs   map[string]any
	gotEntries []map[string]any
}

func (f *fakeMatch) MatchText(_ context.Context, text string, topK int) (*domain.MatchDecision, error) {
	f.gotText = text
	f.gotTopK = topK
	return f.decision, f.err
}

func (f *fakeMatch) MatchAttributes(_ context.Context, log map[string]any, topK int) (*domain.MatchDecision, error) {
	f.gotAttrs = log
	f.gotTopK = topK
	return f.decision, f.err
}

func (f *fakeMatch) MatchRecord(_ context.Context, rawLog []map[string]any, topK int) (*domain.MatchDecision, error) {
	f.gotEntries = rawLog
	f.gotTopK = topK
	return f.decision, f.err
}

func (f *fakeMatch) Decide(context.Context, []float32, string, int) (*domain.MatchDecision, error) {
	return f.decision, f.err
}

type fakeSearch struct {
	matches []domain.SearchMatch
	err     error
}

func (f *fakeSearch) Search(context.Context, []map[string]any, int) ([]domain.SearchMatch, error) {
	return f.matches, f.err
}

func newTestRouter(h *LogsHandler, jh *JobsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if h != nil {
		r.POST("/logs/ingest", h.Ingest)
		r.POST("/logs/ingest/batch", h.IngestBatch)
		r.POST("/logs/match", h.Match)
		r.POST("/logs/search", h.Search)
	}
	if jh != nil {
		r.GET("/jobs/:id", jh.GetJobByID)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIngestHandlerOK(t *testing.T) {
	h := NewLogsHandler(
		&fakeIngest{result: &services.IngestResult{LogID: "LOG-A", TicketID: "OLL-A"}},
		&fakeBatch{}, &fakeMatch{}, &fakeSearch{},
	)
	w := doJSON(t, newTestRouter(h, nil), http.MethodPost, "/logs/ingest",
		gin.H{"log": []gin.H{{"message": "boom"}}})

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["log_id"] != "LOG-A" || resp["ticket_id"] != "OLL-A" {
		t.Fatalf("response: %v", resp)
	}
}

func TestIngestHandlerDuplicate(t *testing.T) {
	dupErr := &services.PipelineError{Code: services.CodeDuplicate, Operation: "ingest", Message: "already ingested"}
	h := NewLogsHandler(&fakeIngest{err: dupErr}, &fakeBatch{}, &fakeMatch{}, &fakeSearch{})

	w := doJSON(t, newTestRouter(h, nil), http.MethodPost, "/logs/ingest",
		gin.H{"log": []gin.H{{"message": "boom"}}})

	if w.Code != http.StatusConflict {
		t.Fatalf("status: want=409 got=%d", w.Code)
	}
	var resp ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Code != string(services.CodeDuplicate) {
		t.Fatalf("error code: got=%s", resp.Error.Code)
	}
}

func TestIngestBatchHandlerAccepted(t *testing.T) {
	h := NewLogsHandler(&fakeIngest{}, &fakeBatch{jobID: "job-1"}, &fakeMatch{}, &fakeSearch{})
	w := doJSON(t, newTestRouter(h, nil), http.MethodPost, "/logs/ingest/batch",
		gin.H{"logs": [][]gin.H{{{"message": "a"}}}})

	if w.Code != http.StatusAccepted {
		t.Fatalf("status: want=202 got=%d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["job_id"] != "job-1" {
		t.Fatalf("job id: got=%s", resp["job_id"])
	}
}

func TestMatchHandlerTextQuery(t *testing.T) {
	match := &fakeMatch{decision: &domain.MatchDecision{
		Status:     domain.MatchStatusKnown,
		Similarity: 0.97,
	}}
	h := NewLogsHandler(&fakeIngest{}, &fakeBatch{}, match, &fakeSearch{})

	w := doJSON(t, newTestRouter(h, nil), http.MethodPost, "/logs/match",
		gin.H{"error_text": "CASDK-0005 endpoint unreachable", "top_k": 3})

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", w.Code)
	}
	if match.gotText != "CASDK-0005 endpoint unreachable" || match.gotTopK != 3 {
		t.Fatalf("match call: text=%q top_k=%d", match.gotText, match.gotTopK)
	}
	var resp domain.MatchDecision
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != domain.MatchStatusKnown {
		t.Fatalf("status field: got=%s", resp.Status)
	}
}

func TestMatchHandlerFlatLogObject(t *testing.T) {
	match := &fakeMatch{decision: &domain.MatchDecision{Status: domain.MatchStatusRelated}}
	h := NewLogsHandler(&fakeIngest{}, &fakeBatch{}, match, &fakeSearch{})

	w := doJSON(t, newTestRouter(h, nil), http.MethodPost, "/logs/match",
		gin.H{"log": gin.H{"flow_code": "ORDER_SYNC", "error_message": "connection refused"}, "top_k": 2})

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	if match.gotAttrs == nil || match.gotAttrs["flow_code"] != "ORDER_SYNC" {
		t.Fatalf("flat object not routed to attribute match: %v", match.gotAttrs)
	}
	if match.gotEntries != nil {
		t.Fatalf("flat object routed to the record path")
	}
	if match.gotTopK != 2 {
		t.Fatalf("top_k: want=2 got=%d", match.gotTopK)
	}
}

func TestMatchHandlerLogEntryArray(t *testing.T) {
	match := &fakeMatch{decision: &domain.MatchDecision{Status: domain.MatchStatusNew}}
	h := NewLogsHandler(&fakeIngest{}, &fakeBatch{}, match, &fakeSearch{})

	w := doJSON(t, newTestRouter(h, nil), http.MethodPost, "/logs/match",
		gin.H{"log": []gin.H{{"message": "boom"}}})

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", w.Code, w.Body.String())
	}
	if len(match.gotEntries) != 1 {
		t.Fatalf("array not routed to the record path: %v", match.gotEntries)
	}
	if match.gotAttrs != nil {
		t.Fatalf("array routed to the attribute path")
	}
}

func TestMatchHandlerMissingQuery(t *testing.T) {
	h := NewLogsHandler(&fakeIngest{}, &fakeBatch{}, &fakeMatch{}, &fakeSearch{})
	w := doJSON(t, newTestRouter(h, nil), http.MethodPost, "/logs/match", gin.H{"top_k": 3})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", w.Code)
	}
}

func TestSearchHandlerOK(t *testing.T) {
	rank := 1
	h := NewLogsHandler(&fakeIngest{}, &fakeBatch{}, &fakeMatch{}, &fakeSearch{
		matches: []domain.SearchMatch{{TicketID: "OLL-A", SimilarityScore: 92.5, Rank: &rank}},
	})
	w := doJSON(t, newTestRouter(h, nil), http.MethodPost, "/logs/search",
		gin.H{"log": []gin.H{{"message": "boom"}}, "top_n": 5})

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", w.Code)
	}
	var resp struct {
		Matches []domain.SearchMatch `json:"matches"`
		Count   int                  `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Matches) != 1 || resp.Matches[0].TicketID != "OLL-A" {
		t.Fatalf("response: %+v", resp)
	}
}

func TestJobsHandlerNotFound(t *testing.T) {
	notFound := &services.PipelineError{Code: services.CodeNotFound, Operation: "batch", Message: "job not found"}
	jh := NewJobsHandler(&fakeBatch{err: notFound})
	w := doJSON(t, newTestRouter(nil, jh), http.MethodGet, "/jobs/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d", w.Code)
	}
}

func TestJobsHandlerOK(t *testing.T) {
	jh := NewJobsHandler(&fakeBatch{job: &jobs.Job{
		ID:     "job-1",
		Status: jobs.StatusCompleted,
		Stored: 2,
	}})
	w := doJSON(t, newTestRouter(nil, jh), http.MethodGet, "/jobs/job-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", w.Code)
	}
	var resp jobs.Job
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "job-1" || resp.Status != jobs.StatusCompleted || resp.Stored != 2 {
		t.Fatalf("response: %+v", resp)
	}
}
