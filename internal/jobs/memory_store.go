package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps jobs in a process-local map. It is the fallback when
// Redis is not configured, and the backend contract tests run against it.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Create(_ context.Context, job *Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("jobs: job id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.UpdatedAt = job.CreatedAt
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) Update(_ context.Context, job *Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("jobs: job id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	job.UpdatedAt = time.Now()
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func cloneJob(job *Job) *Job {
	out := *job
	if job.Results != nil {
		out.Results = make([]ItemResult, len(job.Results))
		copy(out.Results, job.Results)
	}
	return &out
}
