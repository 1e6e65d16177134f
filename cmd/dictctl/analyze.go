package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/application"
	"github.com/bryanwahyu/datasense/internal/application/agents"
	"github.com/bryanwahyu/datasense/internal/application/dictionary"
	"github.com/bryanwahyu/datasense/internal/application/pipeline"
	appsessions "github.com/bryanwahyu/datasense/internal/application/sessions"
	"github.com/bryanwahyu/datasense/internal/config"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
	"github.com/bryanwahyu/datasense/internal/infra/bootstrap"
	"github.com/bryanwahyu/datasense/internal/infra/logging"
	"github.com/bryanwahyu/datasense/internal/infra/sampler"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Build a data dictionary for a CSV or Excel file",
	Long:  "Run the full pipeline in-process on a local CSV or Excel file and print the resulting dictionary as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var (
	analyzeOutFile string
	analyzePersist bool
	analyzeNoLLM   bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutFile, "out", "o", "", "Write the dictionary JSON to this file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzePersist, "persist", false, "Save the project to the configured database")
	analyzeCmd.Flags().BoolVar(&analyzeNoLLM, "no-llm", false, "Skip the language model and use template descriptions")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	source, sourceType, err := sampler.ForFile(path, filepath.Base(path))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var repo projects.Repository
	if analyzePersist {
		r, db, err := bootstrap.OpenRepository(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		if db != nil {
			defer db.Close()
		}
		repo = r
	}

	store := appsessions.NewMemoryStore(application.SystemClock{})
	svc := newPipeline(cfg, store, repo, logger)

	id := uuid.New()
	store.Create(id, filepath.Base(path))
	result, err := svc.Run(ctx, pipeline.Job{
		ProjectID:  id,
		FileName:   filepath.Base(path),
		SourceType: sourceType,
		Source:     source,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	view := dictionary.NewView(id, filepath.Base(path), result.TotalFields, result.Dictionary)

	var out io.Writer = cmd.OutOrStdout()
	if analyzeOutFile != "" {
		f, err := os.Create(analyzeOutFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := writeDictionary(out, view); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Analyzed %d fields, average quality %d (%d approved, %d pending, %d rejected)\n",
		view.TotalFields, view.AvgQuality, view.Approved, view.Pending, view.Rejected)
	if analyzePersist {
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved as project %s\n", id)
	}
	return nil
}

func newPipeline(cfg *config.Config, store *appsessions.MemoryStore, repo projects.Repository, logger *zap.Logger) *pipeline.Service {
	sage := &agents.BusinessAgent{Store: store, Logger: logger}
	if !analyzeNoLLM {
		sage.AI = bootstrap.NewLLM(cfg, logger)
	}
	// no pacing delays outside the UI
	return &pipeline.Service{
		Sessions: store,
		Repo:     repo,
		Atlas:    &agents.SchemaAgent{Store: store, Logger: logger},
		Sage:     sage,
		Guardian: &agents.QualityAgent{Store: store, Logger: logger},
		Clock:    application.SystemClock{},
		Logger:   logger,
	}
}

func writeDictionary(w io.Writer, v *dictionary.View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write dictionary: %w", err)
	}
	return nil
}
