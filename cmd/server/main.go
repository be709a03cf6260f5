package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dslunde/Glyph-sub000/internal/bootstrap"
	"github.com/dslunde/Glyph-sub000/internal/config"
	"github.com/dslunde/Glyph-sub000/internal/queue"
	"github.com/dslunde/Glyph-sub000/internal/server"
	"github.com/dslunde/Glyph-sub000/internal/server/middleware"
	"github.com/dslunde/Glyph-sub000/internal/util"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/logger/console"
	"github.com/dslunde/Glyph-sub000/pkg/store"
	pgstore "github.com/dslunde/Glyph-sub000/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
		JSON:  util.GetEnvString("LOG_FORMAT", "text") == "json",
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &middleware.App{
		Bucket:         cfg.AWS.Bucket,
		PublicEndpoint: cfg.AWS.PublicEndpoint,
		MasterAPIKey:   cfg.Auth.MasterAPIKey,
	}

	if cfg.Auth.URL != "" {
		k, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.Auth.URL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		app.Keyfunc = k.Keyfunc
	}

	var planStore store.PlanStorage
	if cfg.DatabaseURL != "" {
		if err := store.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			logger.Fatal("Failed to migrate database", "err", err)
		}
		pool, err := bootstrap.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		defer pool.Close()
		planStore = pgstore.NewPlanDBStorageWithConnection(pool)
		app.Store = planStore
	} else {
		logger.Warn("DATABASE_URL is not set, runs are not stored")
	}

	conn, err := queue.Init(cfg.RabbitMQ.URL())
	if err != nil {
		logger.Warn("Queue unavailable, only streaming runs are served", "err", err)
	} else {
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, []string{queue.PipelineQueue}); err != nil {
			logger.Fatal("Failed to set up queues", "err", err)
		}
		app.Queue = ch
	}

	s3Client, err := bootstrap.NewS3Client(ctx, cfg.AWS)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}
	if s3Client != nil {
		app.S3 = s3Client
	}

	aiClient, err := bootstrap.NewAIClient(cfg.AI)
	if err != nil {
		logger.Fatal("Failed to create AI client", "err", err)
	}
	app.Embedder = aiClient

	p, err := bootstrap.NewPipeline(cfg, bootstrap.PipelineDeps{
		AI:    aiClient,
		Store: planStore,
		S3:    s3Client,
	})
	if err != nil {
		logger.Fatal("Failed to create pipeline", "err", err)
	}
	app.Pipeline = p

	if err := server.Start(ctx, server.New(app), cfg.Port); err != nil {
		logger.Fatal("Server failed", "err", err)
	}
}
