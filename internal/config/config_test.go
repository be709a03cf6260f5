package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("AI_ADAPTER", "")
	t.Setenv("PORT", "")
	cfg := FromEnv()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "openai", cfg.AI.Adapter)
	assert.Equal(t, 5, cfg.Workflow.QueryCount)
	assert.Equal(t, 120*time.Second, cfg.Workflow.RunTimeout)
	assert.Equal(t, 0.2, cfg.Rank.KeepFraction)
	assert.Equal(t, 0.4, cfg.RankOptions().Weights.PageRank)
	assert.False(t, cfg.AWS.Enabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("AI_ADAPTER", "ollama")
	t.Setenv("WORKFLOW_ERROR_BUDGET", "3")
	t.Setenv("WORKFLOW_CALL_TIMEOUT", "5s")
	t.Setenv("RANK_KEEP_FRACTION", "0.5")
	t.Setenv("AWS_BUCKET", "artifacts")
	t.Setenv("RABBITMQ_HOST", "mq")

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Workflow.LLMKeyless)
	assert.Equal(t, 3, cfg.Workflow.ErrorBudget)
	assert.Equal(t, 5*time.Second, cfg.Workflow.CallTimeout)
	assert.Equal(t, 0.5, cfg.Rank.KeepFraction)
	assert.True(t, cfg.AWS.Enabled())
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitMQ.URL())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown adapter", func(c *Config) { c.AI.Adapter = "bard" }},
		{"damping out of range", func(c *Config) { c.Rank.Damping = 1 }},
		{"keep fraction zero", func(c *Config) { c.Rank.KeepFraction = 0 }},
		{"bad depth", func(c *Config) { c.Plan.DefaultDepth = "deep" }},
		{"non numeric port", func(c *Config) { c.Port = "http" }},
		{"call timeout above run timeout", func(c *Config) { c.Workflow.CallTimeout = time.Hour }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
