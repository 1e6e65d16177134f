// Package bootstrap builds the adapters shared by the API server and dictctl.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/config"
	domai "github.com/bryanwahyu/datasense/internal/domain/ai"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
	anthropicai "github.com/bryanwahyu/datasense/internal/infra/ai/anthropic"
	openaiai "github.com/bryanwahyu/datasense/internal/infra/ai/openai"
	"github.com/bryanwahyu/datasense/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/datasense/internal/infra/db/mysql"
	"github.com/bryanwahyu/datasense/internal/infra/db/postgres"
)

// OpenRepository picks the durable store and runs migrations when enabled.
// With no driver configured projects live in memory and are lost on restart.
// The returned *sql.DB is nil for the in-memory store.
func OpenRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (projects.Repository, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Migrate {
			if err := postgres.Migrate(cfg.DSN(), logger); err != nil {
				return nil, nil, err
			}
		}
		db, err := postgres.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		logger.Info("using postgres project store")
		return postgres.NewProjectRepository(db), db, nil
	case "mysql":
		if cfg.Database.Migrate {
			if err := mysqlp.Migrate(cfg.DSN(), logger); err != nil {
				return nil, nil, err
			}
		}
		db, err := mysqlp.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		logger.Info("using mysql project store")
		return mysqlp.NewProjectRepository(db), db, nil
	default:
		logger.Warn("no database driver configured, projects are kept in memory only")
		return memory.NewRepository(), nil, nil
	}
}

// NewLLM returns nil when no API key is set; descriptions then fall back to
// templates and chat answers 503.
func NewLLM(cfg *config.Config, logger *zap.Logger) domai.Client {
	if !cfg.LLMEnabled() {
		logger.Warn("no LLM API key configured, using template descriptions")
		return nil
	}
	logger.Info("language model configured",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model))
	if cfg.LLM.Provider == "anthropic" {
		return anthropicai.NewClient(anthropicai.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLMBaseURL(),
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger)
	}
	return openaiai.NewClient(openaiai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLMBaseURL(),
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)
}
