// Package config builds the validated configuration handle that main
// passes down to every component.
package config

import (
	"fmt"
	"time"

	"github.com/dslunde/Glyph-sub000/internal/util"
	"github.com/dslunde/Glyph-sub000/pkg/centrality"
	"github.com/dslunde/Glyph-sub000/pkg/similarity"
	"github.com/dslunde/Glyph-sub000/pkg/workflow"

	"github.com/go-playground/validator"
)

type AIConfig struct {
	Adapter       string `validate:"oneof=openai ollama"`
	ChatURL       string
	ChatKey       string
	ChatModel     string `validate:"required"`
	EmbedURL      string
	EmbedKey      string
	EmbedModel    string
	EmbedDim      int   `validate:"gte=0"`
	ParallelReq   int64 `validate:"gte=1"`
	LLMExtraction bool
	EmbedMinimal  bool
}

type SearchConfig struct {
	APIKey            string
	Endpoint          string
	RequestsPerSecond float64 `validate:"gte=0"`
}

type GraphConfig struct {
	Window        int     `validate:"gte=0"`
	MinEdgeWeight float64 `validate:"gt=0"`
	MaxConcepts   int     `validate:"gte=1"`
	MaxEntities   int     `validate:"gte=1"`
}

type RankConfig struct {
	Damping        float64 `validate:"gt=0,lt=1"`
	Tolerance      float64 `validate:"gt=0"`
	MaxIterations  int     `validate:"gte=1"`
	ExactThreshold int     `validate:"gte=0"`
	SampleSize     int     `validate:"gte=1"`
	KeepFraction   float64 `validate:"gt=0,lte=1"`
	Weights        centrality.Weights
}

type PlanConfig struct {
	ConceptThreshold float64 `validate:"gt=0,lte=1"`
	DefaultDepth     string  `validate:"oneof=overview moderate comprehensive"`
}

type RabbitMQConfig struct {
	User     string
	Password string
	Host     string
	Port     string
}

// URL is the AMQP connection string.
func (r RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Password, r.Host, r.Port)
}

type AWSConfig struct {
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Prefix         string
	PublicEndpoint string
}

// Enabled reports whether artifact export is configured.
func (a AWSConfig) Enabled() bool {
	return a.Bucket != ""
}

type AuthConfig struct {
	URL          string
	MasterAPIKey string
}

// Config is the process configuration.
type Config struct {
	Port          string `validate:"required,numeric"`
	DatabaseURL   string
	MigrationsDir string
	Debug         bool
	LogJSON       bool

	Search   SearchConfig
	AI       AIConfig
	Workflow workflow.Config
	Graph    GraphConfig
	Rank     RankConfig
	Plan     PlanConfig
	RabbitMQ RabbitMQConfig
	AWS      AWSConfig
	Auth     AuthConfig
}

// Load reads the configuration from the environment (after .env) and
// validates it.
func Load() (*Config, error) {
	util.LoadEnv()
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads the configuration without validating it.
func FromEnv() *Config {
	wd := workflow.DefaultConfig()
	rd := centrality.DefaultOptions()

	chatKey := util.GetEnv("AI_CHAT_KEY")
	adapter := util.GetEnvString("AI_ADAPTER", "openai")

	return &Config{
		Port:          util.GetEnvString("PORT", "8080"),
		DatabaseURL:   util.GetEnv("DATABASE_URL"),
		MigrationsDir: util.GetEnvString("MIGRATIONS_DIR", "migrations"),
		Debug:         util.GetEnvBool("DEBUG", false),
		LogJSON:       util.GetEnvString("LOG_FORMAT", "text") == "json",

		Search: SearchConfig{
			APIKey:            util.GetEnv("SEARCH_API_KEY"),
			Endpoint:          util.GetEnv("SEARCH_ENDPOINT"),
			RequestsPerSecond: util.GetEnvNumeric("SEARCH_RPS", 5),
		},
		AI: AIConfig{
			Adapter:       adapter,
			ChatURL:       util.GetEnv("AI_CHAT_URL"),
			ChatKey:       chatKey,
			ChatModel:     util.GetEnvString("AI_CHAT_MODEL", "gpt-4o-mini"),
			EmbedURL:      util.GetEnv("AI_EMBED_URL"),
			EmbedKey:      util.GetEnv("AI_EMBED_KEY"),
			EmbedModel:    util.GetEnv("AI_EMBED_MODEL"),
			EmbedDim:      util.GetEnvInt("AI_EMBED_DIM", 0),
			ParallelReq:   int64(util.GetEnvInt("AI_PARALLEL_REQ", 15)),
			LLMExtraction: util.GetEnvBool("GRAPH_LLM_EXTRACTION", false),
			EmbedMinimal:  util.GetEnvBool("AI_EMBED_MINIMAL", false),
		},
		Workflow: workflow.Config{
			SearchAPIKey:     util.GetEnv("SEARCH_API_KEY"),
			LLMAPIKey:        chatKey,
			LLMKeyless:       adapter == "ollama",
			QueryCount:       util.GetEnvInt("WORKFLOW_QUERY_COUNT", wd.QueryCount),
			CallTimeout:      util.GetEnvDuration("WORKFLOW_CALL_TIMEOUT", wd.CallTimeout),
			ScoreConcurrency: util.GetEnvInt("WORKFLOW_SCORE_CONCURRENCY", wd.ScoreConcurrency),
			ErrorBudget:      util.GetEnvInt("WORKFLOW_ERROR_BUDGET", wd.ErrorBudget),
			RunTimeout:       util.GetEnvDuration("WORKFLOW_RUN_TIMEOUT", wd.RunTimeout),
			TitleThreshold:   util.GetEnvNumeric("WORKFLOW_TITLE_THRESHOLD", wd.TitleThreshold),
		},
		Graph: GraphConfig{
			Window:        util.GetEnvInt("GRAPH_WINDOW", 1),
			MinEdgeWeight: util.GetEnvNumeric("GRAPH_MIN_EDGE_WEIGHT", 1),
			MaxConcepts:   util.GetEnvInt("GRAPH_MAX_CONCEPTS", 500),
			MaxEntities:   util.GetEnvInt("GRAPH_MAX_ENTITIES", 300),
		},
		Rank: RankConfig{
			Damping:        util.GetEnvNumeric("RANK_DAMPING", rd.Damping),
			Tolerance:      util.GetEnvNumeric("RANK_TOLERANCE", rd.Tolerance),
			MaxIterations:  util.GetEnvInt("RANK_MAX_ITERATIONS", rd.MaxIterations),
			ExactThreshold: util.GetEnvInt("RANK_EXACT_THRESHOLD", rd.ExactThreshold),
			SampleSize:     util.GetEnvInt("RANK_SAMPLE_SIZE", rd.SampleSize),
			KeepFraction:   util.GetEnvNumeric("RANK_KEEP_FRACTION", centrality.DefaultKeepFraction),
			Weights: centrality.Weights{
				PageRank:    util.GetEnvNumeric("RANK_WEIGHT_PAGERANK", rd.Weights.PageRank),
				Eigenvector: util.GetEnvNumeric("RANK_WEIGHT_EIGENVECTOR", rd.Weights.Eigenvector),
				Betweenness: util.GetEnvNumeric("RANK_WEIGHT_BETWEENNESS", rd.Weights.Betweenness),
				Closeness:   util.GetEnvNumeric("RANK_WEIGHT_CLOSENESS", rd.Weights.Closeness),
			},
		},
		Plan: PlanConfig{
			ConceptThreshold: util.GetEnvNumeric("PLAN_CONCEPT_THRESHOLD", similarity.DefaultConceptThreshold),
			DefaultDepth:     util.GetEnvString("PLAN_DEFAULT_DEPTH", "moderate"),
		},
		RabbitMQ: RabbitMQConfig{
			User:     util.GetEnvString("RABBITMQ_USER", "guest"),
			Password: util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
			Host:     util.GetEnvString("RABBITMQ_HOST", "localhost"),
			Port:     util.GetEnvString("RABBITMQ_PORT", "5672"),
		},
		AWS: AWSConfig{
			Region:         util.GetEnvString("AWS_REGION", "us-east-1"),
			Endpoint:       util.GetEnv("AWS_ENDPOINT"),
			AccessKey:      util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey:      util.GetEnv("AWS_SECRET_KEY"),
			Bucket:         util.GetEnv("AWS_BUCKET"),
			Prefix:         util.GetEnv("AWS_PREFIX"),
			PublicEndpoint: util.GetEnv("AWS_PUBLIC_ENDPOINT"),
		},
		Auth: AuthConfig{
			URL:          util.GetEnv("AUTH_URL"),
			MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
		},
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Workflow.CallTimeout <= 0 || c.Workflow.RunTimeout <= 0 {
		return fmt.Errorf("invalid configuration: workflow timeouts must be positive")
	}
	if c.Workflow.CallTimeout > c.Workflow.RunTimeout {
		return fmt.Errorf("invalid configuration: call timeout %s exceeds run timeout %s",
			c.Workflow.CallTimeout, c.Workflow.RunTimeout)
	}
	return nil
}

// RankOptions converts the rank section into centrality options.
func (c *Config) RankOptions() centrality.Options {
	return centrality.Options{
		Damping:        c.Rank.Damping,
		Tolerance:      c.Rank.Tolerance,
		MaxIterations:  c.Rank.MaxIterations,
		Weights:        c.Rank.Weights,
		ExactThreshold: c.Rank.ExactThreshold,
		SampleSize:     c.Rank.SampleSize,
	}
}

// ShutdownTimeout bounds graceful shutdown of the server and worker.
const ShutdownTimeout = 10 * time.Second
