package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/promptlyai/loglens/internal/jobs"
	"github.com/promptlyai/loglens/internal/observability"
	"github.com/promptlyai/loglens/internal/platform/logger"
)

// BatchService runs batch ingestion as one sequential background worker per
// job, bounding the outbound rate to the model. Status polling goes through
// the job store and never blocks the worker.
type BatchService interface {
	Enqueue(ctx context.Context, batch [][]map[string]any) (string, error)
	Status(ctx context.Context, jobID string) (*jobs.Job, error)
}

type batchService struct {
	log    *logger.Logger
	ingest IngestService
	store  jobs.Store
}

func NewBatchService(baseLog *logger.Logger, ingest IngestService, store jobs.Store) BatchService {
	return &batchService{
		log:    baseLog.With("service", "BatchService"),
		ingest: ingest,
		store:  store,
	}
}

func (s *batchService) Enqueue(ctx context.Context, batch [][]map[string]any) (string, error) {
	if len(batch) == 0 {
		return "", pipeErr(CodeValidation, "batch", "empty batch", nil)
	}

	job := &jobs.Job{
		ID:     uuid.NewString(),
		Status: jobs.StatusPending,
		Total:  len(batch),
	}
	if err := s.store.Create(ctx, job); err != nil {
		return "", pipeErr(CodePersistence, "batch", "job create failed", err)
	}

	// The worker outlives the request; it carries its own context.
	go s.run(context.Background(), job.ID, batch)

	s.log.Info("batch enqueued", "job_id", job.ID, "records", len(batch))
	return job.ID, nil
}

func (s *batchService) Status(ctx context.Context, jobID string) (*jobs.Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, pipeErr(CodeNotFound, "batch", "job not found: "+jobID, err)
	}
	return job, nil
}

func (s *batchService) run(ctx context.Context, jobID string, batch [][]map[string]any) {
	metrics := observability.Current()
	if metrics != nil {
		metrics.JobInflightInc()
		defer metrics.JobInflightDec()
	}

	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		s.log.Error("batch worker lost its job", "job_id", jobID, "error", err)
		return
	}
	job.Status = jobs.StatusInProgress
	s.update(ctx, job)

	for i, rawLog := range batch {
		job.CurrentIndex = i
		result, err := s.ingest.Ingest(ctx, rawLog)
		job.Processed++

		item := jobs.ItemResult{Index: i}
		switch {
		case err == nil:
			job.Stored++
			item.Status = jobs.ItemStored
			item.LogID = result.LogID
			item.TicketID = result.TicketID
		case CodeOf(err) == CodeDuplicate:
			job.Duplicates++
			item.Status = jobs.ItemDuplicate
			item.Error = err.Error()
		default:
			job.Failed++
			item.Status = jobs.ItemFailed
			item.Error = err.Error()
			s.log.Warn("batch record failed", "job_id", jobID, "index", i, "error", err)
		}
		job.Results = append(job.Results, item)

		// Persist after every record so pollers see live progress.
		s.update(ctx, job)
	}

	if job.Stored == 0 && job.Failed > 0 && job.Duplicates == 0 {
		job.Status = jobs.StatusFailed
	} else {
		job.Status = jobs.StatusCompleted
	}
	s.update(ctx, job)

	if metrics != nil {
		metrics.ObserveJobFinished(job.Status)
	}
	s.log.Info("batch finished",
		"job_id", jobID,
		"status", job.Status,
		"stored", job.Stored,
		"duplicates", job.Duplicates,
		"failed", job.Failed,
	)
}

func (s *batchService) update(ctx context.Context, job *jobs.Job) {
	if err := s.store.Update(ctx, job); err != nil {
		s.log.Warn("job status write failed", "job_id", job.ID, "error", err)
	}
}
