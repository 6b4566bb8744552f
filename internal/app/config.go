package app

import (
	"fmt"

	"github.com/promptlyai/loglens/internal/db"
	"github.com/promptlyai/loglens/internal/platform/envutil"
	"github.com/promptlyai/loglens/internal/platform/neo4jdb"
	"github.com/promptlyai/loglens/internal/platform/openai"
	"github.com/promptlyai/loglens/internal/platform/qdrant"
	"github.com/promptlyai/loglens/internal/services"
)

type Config struct {
	AppMode string
	Port    string

	Postgres db.Config
	Qdrant   qdrant.Config
	OpenAI   openai.Config
	Neo4j    neo4jdb.Config
	Match    services.MatchConfig
}

func LoadConfig() (Config, error) {
	qdrantCfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("resolve qdrant config: %w", err)
	}
	openaiCfg, err := openai.ResolveConfigFromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("resolve openai config: %w", err)
	}
	matchCfg := services.ResolveMatchConfigFromEnv()
	if err := services.ValidateMatchConfig(matchCfg); err != nil {
		return Config{}, fmt.Errorf("resolve match config: %w", err)
	}
	return Config{
		AppMode:  envutil.String("APP_MODE", "development"),
		Port:     envutil.String("PORT", "8080"),
		Postgres: db.ResolveConfigFromEnv(),
		Qdrant:   qdrantCfg,
		OpenAI:   openaiCfg,
		Neo4j:    neo4jdb.ResolveConfigFromEnv(),
		Match:    matchCfg,
	}, nil
}
