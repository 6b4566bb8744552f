package app

import (
	"github.com/promptlyai/loglens/internal/handlers"
	"github.com/promptlyai/loglens/internal/server"
)

func wireHandlers(serviceset Services) server.RouterConfig {
	return server.RouterConfig{
		LogsHandler:  handlers.NewLogsHandler(serviceset.Ingest, serviceset.Batch, serviceset.Match, serviceset.Search),
		JobsHandler:  handlers.NewJobsHandler(serviceset.Batch),
		StatsHandler: handlers.NewStatsHandler(serviceset.Stats),
	}
}
