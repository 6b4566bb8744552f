package app

import (
	"fmt"

	"github.com/promptlyai/loglens/internal/graph"
	"github.com/promptlyai/loglens/internal/jobs"
	"github.com/promptlyai/loglens/internal/platform/logger"
	"github.com/promptlyai/loglens/internal/platform/neo4jdb"
	"github.com/promptlyai/loglens/internal/platform/openai"
	"github.com/promptlyai/loglens/internal/platform/qdrant"
)

type Clients struct {
	AI      openai.Client
	Vectors qdrant.VectorStore
	Graph   graph.Store
	Neo4j   *neo4jdb.Client
	JobBus  jobs.Store
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	ai, err := openai.NewClient(log, cfg.OpenAI)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	vectors, err := qdrant.NewVectorStore(log, cfg.Qdrant)
	if err != nil {
		return Clients{}, fmt.Errorf("init qdrant store: %w", err)
	}

	// Graph and redis are optional: a nil client falls back to degraded
	// behavior (no graph enrichment, in-memory job store).
	neo4jClient, err := neo4jdb.New(log, cfg.Neo4j)
	if err != nil {
		log.Warn("neo4j init failed, graph features disabled", "error", err)
		neo4jClient = nil
	}
	var graphStore graph.Store
	if neo4jClient != nil {
		graphStore, err = graph.NewNeo4jStore(log, neo4jClient)
		if err != nil {
			log.Warn("graph store init failed, graph features disabled", "error", err)
			graphStore = nil
		}
	}

	var jobStore jobs.Store
	redisStore, err := jobs.NewRedisStore(log)
	if err != nil {
		log.Warn("redis job store init failed, falling back to in-memory", "error", err)
	}
	if redisStore != nil {
		jobStore = redisStore
	} else {
		jobStore = jobs.NewMemoryStore()
	}

	return Clients{
		AI:      ai,
		Vectors: vectors,
		Graph:   graphStore,
		Neo4j:   neo4jClient,
		JobBus:  jobStore,
	}, nil
}
