package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/promptlyai/loglens/internal/platform/envutil"
	"github.com/promptlyai/loglens/internal/platform/logger"
)

const jobKeyPrefix = "ll:job:"

// RedisStore keeps jobs in Redis so batch status survives a process restart.
// Jobs expire after TTL; pollers that come back days later get not-found, the
// same answer as an unknown id.
type RedisStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisStore returns (nil, nil) when REDIS_ADDR is unset: the caller falls
// back to the in-memory store.
func NewRedisStore(log *logger.Logger) (*RedisStore, error) {
	if log == nil {
		return nil, fmt.Errorf("jobs: logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("jobs: redis ping: %w", err)
	}

	ttl := time.Duration(envutil.Int("JOB_TTL_HOURS", 24)) * time.Hour
	return &RedisStore{
		log: log.With("service", "RedisJobStore"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (s *RedisStore) Create(ctx context.Context, job *Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("jobs: job id required")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.UpdatedAt = job.CreatedAt
	return s.write(ctx, job)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	raw, err := s.rdb.Get(ctx, jobKeyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobs: redis get: %w", err)
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("jobs: decode job: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) Update(ctx context.Context, job *Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("jobs: job id required")
	}
	exists, err := s.rdb.Exists(ctx, jobKeyPrefix+job.ID).Result()
	if err != nil {
		return fmt.Errorf("jobs: redis exists: %w", err)
	}
	if exists == 0 {
		return ErrJobNotFound
	}
	job.UpdatedAt = time.Now()
	return s.write(ctx, job)
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) write(ctx context.Context, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobs: encode job: %w", err)
	}
	if err := s.rdb.Set(ctx, jobKeyPrefix+job.ID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("jobs: redis set: %w", err)
	}
	return nil
}
