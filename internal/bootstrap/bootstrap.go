// Package bootstrap builds the clients and the pipeline shared by the
// server and the worker from a validated configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dslunde/Glyph-sub000/internal/config"
	"github.com/dslunde/Glyph-sub000/internal/storage"
	"github.com/dslunde/Glyph-sub000/pkg/ai"
	oai "github.com/dslunde/Glyph-sub000/pkg/ai/ollama"
	gai "github.com/dslunde/Glyph-sub000/pkg/ai/openai"
	"github.com/dslunde/Glyph-sub000/pkg/graph"
	"github.com/dslunde/Glyph-sub000/pkg/loader"
	ioloader "github.com/dslunde/Glyph-sub000/pkg/loader/io"
	s3loader "github.com/dslunde/Glyph-sub000/pkg/loader/s3"
	"github.com/dslunde/Glyph-sub000/pkg/loader/web"
	"github.com/dslunde/Glyph-sub000/pkg/logger"
	"github.com/dslunde/Glyph-sub000/pkg/pipeline"
	"github.com/dslunde/Glyph-sub000/pkg/plan"
	"github.com/dslunde/Glyph-sub000/pkg/search/tavily"
	"github.com/dslunde/Glyph-sub000/pkg/store"
	"github.com/dslunde/Glyph-sub000/pkg/workflow"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// NewAIClient creates the language model client selected by AI_ADAPTER.
func NewAIClient(cfg config.AIConfig) (ai.GraphAIClient, error) {
	switch cfg.Adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbedModel,
			EmbeddingDim:   cfg.EmbedDim,

			BaseURL: cfg.ChatURL,
			ApiKey:  cfg.ChatKey,

			MaxConcurrentRequests: cfg.ParallelReq,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create Ollama client: %w", err)
		}
		return client, nil
	default:
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbedModel,
			EmbeddingDim:   cfg.EmbedDim,

			ChatURL:      cfg.ChatURL,
			ChatKey:      cfg.ChatKey,
			EmbeddingURL: cfg.EmbedURL,
			EmbeddingKey: cfg.EmbedKey,

			MaxConcurrentRequests: cfg.ParallelReq,
		}), nil
	}
}

// NewDBPool connects to Postgres with the pgvector types registered on
// every connection.
func NewDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return pool, nil
}

// NewS3Client returns nil when neither credentials nor a bucket are
// configured.
func NewS3Client(ctx context.Context, cfg config.AWSConfig) (*s3.Client, error) {
	if cfg.AccessKey == "" && !cfg.Enabled() {
		return nil, nil
	}
	return storage.NewS3Client(ctx, cfg)
}

// PipelineDeps are the optional collaborators of NewPipeline.
type PipelineDeps struct {
	AI    ai.GraphAIClient
	Store store.PlanStorage
	S3    *s3.Client

	// LocalFiles allows plain file system paths as manual sources.
	LocalFiles bool
}

// NewPipeline wires search, ingestion, graph building, ranking, planning,
// persistence and export according to cfg.
func NewPipeline(cfg *config.Config, deps PipelineDeps) (*pipeline.Pipeline, error) {
	provider := tavily.New(tavily.Params{
		APIKey:            cfg.Search.APIKey,
		Endpoint:          cfg.Search.Endpoint,
		RequestsPerSecond: cfg.Search.RequestsPerSecond,
	})
	collector := workflow.New(cfg.Workflow, provider, deps.AI)

	decoders := loader.DefaultDecoders()
	manualParams := loader.NewManualParams{
		Pages:    web.NewWebPageFetcher(web.NewWebPageFetcherParams{}),
		Decoders: decoders,
	}
	if deps.LocalFiles {
		manualParams.Files = ioloader.NewIOFileSystem(decoders)
	}
	if deps.S3 != nil {
		manualParams.Objects = s3loader.NewS3FileSystemWithClient(deps.S3, decoders)
	}

	builderParams := graph.NewBuilderParams{
		Window:        cfg.Graph.Window,
		MinEdgeWeight: cfg.Graph.MinEdgeWeight,
		MaxConcepts:   cfg.Graph.MaxConcepts,
		MaxEntities:   cfg.Graph.MaxEntities,
	}
	if cfg.AI.LLMExtraction && deps.AI != nil {
		builderParams.Extractor = graph.NewLLMExtractor(deps.AI)
		logger.Info("[Bootstrap] Using LLM concept extraction")
	}

	params := pipeline.Params{
		Collector:    collector,
		Manual:       loader.NewManual(manualParams),
		Builder:      graph.NewBuilder(builderParams),
		Assembler:    plan.NewAssembler(plan.NewAssemblerParams{Threshold: cfg.Plan.ConceptThreshold}),
		RankOptions:  cfg.RankOptions(),
		KeepFraction: cfg.Rank.KeepFraction,
		DefaultDepth: cfg.Plan.DefaultDepth,
		Store:        deps.Store,
	}
	if cfg.AI.EmbedMinimal && deps.AI != nil {
		params.Embedder = deps.AI
		params.EmbedParallel = int(cfg.AI.ParallelReq)
	}
	if deps.S3 != nil && cfg.AWS.Enabled() {
		params.Exporter = storage.NewExporter(deps.S3, cfg.AWS.Bucket, cfg.AWS.Prefix)
	}

	return pipeline.New(params)
}
