package services

import (
	"context"
	"testing"
	"time"

	"github.com/promptlyai/loglens/internal/jobs"
)

// scriptedIngest returns one scripted outcome per call.
type scriptedIngest struct {
	outcomes []error
	results  []*IngestResult
	calls    int
}

func (s *scriptedIngest) Ingest(context.Context, []map[string]any) (*IngestResult, error) {
	i := s.calls
	s.calls++
	if i < len(s.outcomes) && s.outcomes[i] != nil {
		return nil, s.outcomes[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return &IngestResult{LogID: "LOG-X", TicketID: "OLL-X"}, nil
}

func waitForJob(t *testing.T, svc BatchService, jobID string, want string) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.Status(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestBatchCountsOutcomes(t *testing.T) {
	ingest := &scriptedIngest{
		outcomes: []error{
			nil,
			pipeErr(CodeDuplicate, "ingest", "already ingested", nil),
			pipeErr(CodeCollaborator, "ingest", "model down", nil),
		},
		results: []*IngestResult{
			{LogID: "LOG-A", TicketID: "OLL-A"},
		},
	}
	svc := NewBatchService(newTestLogger(t), ingest, jobs.NewMemoryStore())

	jobID, err := svc.Enqueue(context.Background(), [][]map[string]any{
		{{"n": 1.0}}, {{"n": 2.0}}, {{"n": 3.0}},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job := waitForJob(t, svc, jobID, jobs.StatusCompleted)
	if job.Processed != 3 || job.Stored != 1 || job.Duplicates != 1 || job.Failed != 1 {
		t.Fatalf("counters: %+v", job)
	}
	if len(job.Results) != 3 {
		t.Fatalf("per-record results: want=3 got=%d", len(job.Results))
	}
	if job.Results[0].Status != jobs.ItemStored || job.Results[0].LogID != "LOG-A" {
		t.Fatalf("result 0: %+v", job.Results[0])
	}
	if job.Results[1].Status != jobs.ItemDuplicate {
		t.Fatalf("result 1: %+v", job.Results[1])
	}
	if job.Results[2].Status != jobs.ItemFailed || job.Results[2].Error == "" {
		t.Fatalf("result 2: %+v", job.Results[2])
	}
}

func TestBatchAllFailedMarksJobFailed(t *testing.T) {
	ingest := &scriptedIngest{
		outcomes: []error{
			pipeErr(CodeCollaborator, "ingest", "down", nil),
			pipeErr(CodeCollaborator, "ingest", "down", nil),
		},
	}
	svc := NewBatchService(newTestLogger(t), ingest, jobs.NewMemoryStore())

	jobID, err := svc.Enqueue(context.Background(), [][]map[string]any{
		{{"n": 1.0}}, {{"n": 2.0}},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	job := waitForJob(t, svc, jobID, jobs.StatusFailed)
	if job.Failed != 2 || job.Stored != 0 {
		t.Fatalf("counters: %+v", job)
	}
}

func TestBatchEmptyBatchRejected(t *testing.T) {
	svc := NewBatchService(newTestLogger(t), &scriptedIngest{}, jobs.NewMemoryStore())
	if _, err := svc.Enqueue(context.Background(), nil); err == nil || CodeOf(err) != CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestBatchStatusUnknownJob(t *testing.T) {
	svc := NewBatchService(newTestLogger(t), &scriptedIngest{}, jobs.NewMemoryStore())
	if _, err := svc.Status(context.Background(), "ghost"); err == nil || CodeOf(err) != CodeNotFound {
		t.Fatalf("want not-found error, got %v", err)
	}
}
