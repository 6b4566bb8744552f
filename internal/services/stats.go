package services

import (
	"context"

	"github.com/promptlyai/loglens/internal/domain"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/repos"
)

type StatsService interface {
	Stats(ctx context.Context) (*domain.StoreStats, error)
}

type statsService struct {
	log     *logger.Logger
	records repos.LogRecordRepo
}

func NewStatsService(baseLog *logger.Logger, records repos.LogRecordRepo) StatsService {
	return &statsService{
		log:     baseLog.With("service", "StatsService"),
		records: records,
	}
}

func (s *statsService) Stats(ctx context.Context) (*domain.StoreStats, error) {
	stats, err := s.records.Stats(ctx, nil)
	if err != nil {
		return nil, pipeErr(CodePersistence, "stats", "store stats failed", err)
	}
	return stats, nil
}
