package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mobilitics/mobility-analytics-go/internal/aggregator"
	"github.com/mobilitics/mobility-analytics-go/internal/anonymizer"
	"github.com/mobilitics/mobility-analytics-go/internal/bucketing"
	"github.com/mobilitics/mobility-analytics-go/internal/config"
	"github.com/mobilitics/mobility-analytics-go/internal/handler"
	"github.com/mobilitics/mobility-analytics-go/internal/middleware"
	"github.com/mobilitics/mobility-analytics-go/internal/repository"
	"github.com/mobilitics/mobility-analytics-go/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, db *sql.DB) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.Logger())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Mobility Analytics API is running",
		})
	})

	// Wire the pipeline
	rawTrips := repository.NewRawTripRepository(db)
	records := repository.NewAnonymizedTripRepository(db)
	jobs := repository.NewJobRepository(db)

	bucketer := bucketing.NewBucketer(cfg.Anonymization)
	pseudonymizer := bucketing.NewPseudonymizer(cfg.PseudonymPepper)

	orchestrator := anonymizer.NewOrchestrator(rawTrips, records, bucketer, pseudonymizer, cfg.Anonymization)
	anonymizationService := service.NewAnonymizationService(jobs, orchestrator)

	aggregateService := service.NewAggregateService(
		aggregator.NewODMatrixBuilder(records),
		aggregator.NewHeatmapBuilder(records, bucketer),
		aggregator.NewChainMiner(records, cfg.Anonymization),
		cfg.Anonymization.Epsilon,
	)

	jobHandler := handler.NewJobHandler(anonymizationService)
	aggregateHandler := handler.NewAggregateHandler(aggregateService)

	// API 路由组
	api := r.Group("/api/v1")
	{
		anonymization := api.Group("/anonymization")
		{
			anonymization.POST("/jobs", jobHandler.StartJob)
			anonymization.GET("/jobs/:reference", jobHandler.GetJob)
		}

		// Disclosure endpoints are rate limited; each export draws
		// independent noise, so hammering them is the cheapest way to
		// average it out
		aggregates := api.Group("/aggregates")
		aggregates.Use(middleware.RateLimit(30, time.Minute))
		{
			aggregates.GET("/od-matrix", aggregateHandler.GetODMatrix)
			aggregates.GET("/heatmap", aggregateHandler.GetHeatmap)
			aggregates.GET("/trip-chains", aggregateHandler.GetTripChains)
		}
	}

	return r
}
