package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/config"
	anthropicai "github.com/bryanwahyu/datasense/internal/infra/ai/anthropic"
	openaiai "github.com/bryanwahyu/datasense/internal/infra/ai/openai"
	"github.com/bryanwahyu/datasense/internal/infra/db/memory"
)

func TestOpenRepository_DefaultsToMemory(t *testing.T) {
	repo, db, err := OpenRepository(context.Background(), config.Default(), zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.IsType(t, &memory.Repository{}, repo)
}

func TestNewLLM(t *testing.T) {
	cfg := config.Default()
	assert.Nil(t, NewLLM(cfg, zap.NewNop()))

	cfg.LLM.APIKey = "sk-test"
	assert.IsType(t, &openaiai.Client{}, NewLLM(cfg, zap.NewNop()))

	cfg.LLM.Provider = "anthropic"
	assert.IsType(t, &anthropicai.Client{}, NewLLM(cfg, zap.NewNop()))
}
