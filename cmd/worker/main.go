package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dslunde/Glyph-sub000/internal/bootstrap"
	"github.com/dslunde/Glyph-sub000/internal/config"
	"github.com/dslunde/Glyph-sub000/internal/queue"
	"github.com/dslunde/Glyph-sub000/internal/util"
	"github.com/dslunde/Glyph-sub000/pkg/ai"
	"github.com/dslunde/Glyph-sub000/pkg/leaselock"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/logger/console"
	pgstore "github.com/dslunde/Glyph-sub000/pkg/store/pgx"
)

// aiMetricsProcessor logs and resets the model usage of every message.
type aiMetricsProcessor struct {
	next queue.Processor
	ai   ai.GraphAIClient
}

func (p aiMetricsProcessor) Process(ctx context.Context, body []byte) error {
	err := p.next.Process(ctx, body)
	metrics := p.ai.GetMetrics()
	logger.Info(
		"AI Metrics",
		"requests", metrics.Requests,
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
		"duration", util.FormatHMS(metrics.DurationMs),
	)
	p.ai.ResetMetrics()
	return err
}

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
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required by the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.NewDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pool.Close()
	planStore := pgstore.NewPlanDBStorageWithConnection(pool)

	s3Client, err := bootstrap.NewS3Client(ctx, cfg.AWS)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}

	aiClient, err := bootstrap.NewAIClient(cfg.AI)
	if err != nil {
		logger.Fatal("Could not create AI client", "err", err)
	}

	p, err := bootstrap.NewPipeline(cfg, bootstrap.PipelineDeps{
		AI:         aiClient,
		Store:      planStore,
		S3:         s3Client,
		LocalFiles: true,
	})
	if err != nil {
		logger.Fatal("Failed to create pipeline", "err", err)
	}

	conn, err := queue.Init(cfg.RabbitMQ.URL())
	if err != nil {
		logger.Fatal("Failed to connect to queue", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, []string{queue.PipelineQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// one message at a time per worker
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()
	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.PipelineQueue,
		queue.PipelineQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.PipelineQueue, "err", err)
	}

	handler := queue.NewHandler(p, planStore, leaselock.New(pool))
	consumer := queue.NewConsumer(queue.PipelineQueue, aiMetricsProcessor{next: handler, ai: aiClient}, ch)

	logger.Info("Listening for messages", "queue", queue.PipelineQueue)
	consumer.Run(ctx, msgs)

	logger.Info("Shutdown signal received, exiting...")
}
