package bootstrap

import (
	"context"
	"testing"

	"github.com/dslunde/Glyph-sub000/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAIClient(t *testing.T) {
	for _, adapter := range []string{"openai", "ollama"} {
		t.Run(adapter, func(t *testing.T) {
			client, err := NewAIClient(config.AIConfig{Adapter: adapter, ChatModel: "m", ParallelReq: 2})
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}

	_, err := NewAIClient(config.AIConfig{Adapter: "ollama", ChatURL: "://bad"})
	assert.Error(t, err)
}

func TestNewS3Client_Unconfigured(t *testing.T) {
	client, err := NewS3Client(context.Background(), config.AWSConfig{Region: "us-east-1"})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewPipeline(t *testing.T) {
	cfg := config.FromEnv()
	require.NoError(t, cfg.Validate())

	client, err := NewAIClient(cfg.AI)
	require.NoError(t, err)

	p, err := NewPipeline(cfg, PipelineDeps{AI: client, LocalFiles: true})
	require.NoError(t, err)
	assert.NotNil(t, p)

	cfg.Plan.DefaultDepth = "deep"
	_, err = NewPipeline(cfg, PipelineDeps{})
	assert.Error(t, err)
}
