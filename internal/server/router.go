package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/promptlyai/loglens/internal/handlers"
	"github.com/promptlyai/loglens/internal/observability"
	"github.com/promptlyai/loglens/internal/platform/envutil"
)

type RouterConfig struct {
	LogsHandler  *handlers.LogsHandler
	JobsHandler  *handlers.JobsHandler
	StatsHandler *handlers.StatsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if envutil.String("APP_MODE", "development") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:8080",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	router.Use(metricsMiddleware())

	router.GET("/healthcheck", handlers.HealthCheck)

	router.POST("/logs/ingest", cfg.LogsHandler.Ingest)
	router.POST("/logs/ingest/batch", cfg.LogsHandler.IngestBatch)
	router.POST("/logs/match", cfg.LogsHandler.Match)
	router.POST("/logs/search", cfg.LogsHandler.Search)

	router.GET("/jobs/:id", cfg.JobsHandler.GetJobByID)
	router.GET("/stats", cfg.StatsHandler.GetStats)

	if metrics := observability.Current(); metrics != nil {
		router.GET("/metrics", gin.WrapF(metrics.WriteHTTP))
	}

	return router
}
