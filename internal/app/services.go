package app

import (
	"fmt"

	"github.com/promptlyai/loglens/internal/normalize"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/repos"
	"github.com/promptlyai/loglens/internal/services"
)

type Services struct {
	Ingest services.IngestService
	Batch  services.BatchService
	Match  services.MatchService
	Search services.SearchService
	Stats  services.StatsService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, records repos.LogRecordRepo) (Services, error) {
	normalizer, err := normalize.NewNormalizer(log, clients.AI)
	if err != nil {
		return Services{}, fmt.Errorf("init normalizer: %w", err)
	}
	embedder, err := services.NewEmbedder(log, clients.AI, cfg.Qdrant.VectorDim)
	if err != nil {
		return Services{}, fmt.Errorf("init embedder: %w", err)
	}

	ingest := services.NewIngestService(log, normalizer, embedder, clients.Vectors, records, clients.Graph)
	batch := services.NewBatchService(log, ingest, clients.JobBus)
	match, err := services.NewMatchService(log, cfg.Match, clients.Vectors, records, embedder, normalizer)
	if err != nil {
		return Services{}, fmt.Errorf("init match service: %w", err)
	}
	reranker := services.NewReranker(log, clients.AI)
	persister := services.NewRelationshipPersister(log, clients.Graph)
	search := services.NewSearchService(log, normalizer, embedder, clients.Vectors, records, reranker, persister, clients.Graph, cfg.Match.DefaultTopK)
	stats := services.NewStatsService(log, records)

	return Services{
		Ingest: ingest,
		Batch:  batch,
		Match:  match,
		Search: search,
		Stats:  stats,
	}, nil
}
