package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/internal/analytics"
	"github.com/helpdesk-assist/backend/internal/api/handlers"
	"github.com/helpdesk-assist/backend/internal/assistant"
	"github.com/helpdesk-assist/backend/internal/cache/redis"
	"github.com/helpdesk-assist/backend/internal/health"
	"github.com/helpdesk-assist/backend/internal/kg/neo4j"
	"github.com/helpdesk-assist/backend/internal/metrics"
	"github.com/helpdesk-assist/backend/internal/middleware/ratelimit"
	"github.com/helpdesk-assist/backend/internal/middleware/security"
	inputvalidation "github.com/helpdesk-assist/backend/internal/middleware/validation"
	"github.com/helpdesk-assist/backend/internal/retrieval"
	"github.com/helpdesk-assist/backend/internal/storage/sqlite"
	"github.com/helpdesk-assist/backend/internal/validation"
	"github.com/helpdesk-assist/backend/internal/vector/milvus"
	"github.com/helpdesk-assist/backend/pkg/config"
	appLogger "github.com/helpdesk-assist/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Helpdesk Assistant API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// Redis is optional. Without it the daily counter falls back to an
	// in-process map and the result cache is disabled.
	var counter analytics.DailyCounter = analytics.NewMemoryCounter()
	var resultCache assistant.ResultCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, using in-memory counter and no result cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			counter = redisClient
			resultCache = redisClient
		}
	}

	retrievalClient := retrieval.NewClient(
		cfg.Retrieval.Endpoint,
		time.Duration(cfg.Retrieval.TimeoutSec)*time.Second,
	)

	milvusClient := milvus.NewClient(cfg.Milvus.Endpoint, cfg.Milvus.CollectionName)
	defer milvusClient.Close()

	var graphPinger health.Pinger
	neo4jClient, err := neo4j.NewClient(
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
	)
	if err != nil {
		appLogger.Warn("Failed to create Neo4j client, graph reported unavailable", zap.Error(err))
	} else {
		defer neo4jClient.Close(context.Background())
		graphPinger = neo4jClient
	}

	scorer := assistant.NewScorer(assistant.Weights{
		Ticket: cfg.Scoring.TicketWeight,
		KB:     cfg.Scoring.KBWeight,
		CI:     cfg.Scoring.CIWeight,
	}, cfg.Scoring.CorroborationBoost)

	orchestrator := assistant.NewOrchestrator(
		retrievalClient,
		scorer,
		assistant.NewChainBuilder(),
		counter,
		resultCache,
		sqliteClient,
		time.Duration(cfg.Cache.ResultTTLSec)*time.Second,
	)

	workflow := validation.NewWorkflow(sqliteClient)
	monitor := health.NewMonitor(retrievalClient, milvusClient, graphPinger)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-User-ID, X-User-Role",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{})
	defer limiter.Stop()
	app.Use(limiter.Middleware())
	app.Use(inputvalidation.Middleware(inputvalidation.Config{}))

	assistantHandler := handlers.NewAssistantHandler(orchestrator, counter, sqliteClient)
	validationHandler := handlers.NewValidationHandler(workflow)
	healthHandler := handlers.NewHealthHandler(monitor)

	api := app.Group("/api/v1")

	api.Post("/assistant/query", assistantHandler.HandleQuery)
	api.Get("/assistant/stats", assistantHandler.GetStats)

	api.Post("/validation/action", validationHandler.HandleAction)
	api.Get("/validation/progress", validationHandler.GetProgress)
	api.Get("/validation/next", validationHandler.GetNextSample)
	api.Get("/validation/metrics", validationHandler.GetMetrics)

	api.Get("/health", healthHandler.HandleHealth)
	api.Get("/health/services", healthHandler.HandleServices)

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
