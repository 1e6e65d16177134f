package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/application"
	"github.com/bryanwahyu/datasense/internal/application/agents"
	"github.com/bryanwahyu/datasense/internal/application/chat"
	"github.com/bryanwahyu/datasense/internal/application/dictionary"
	"github.com/bryanwahyu/datasense/internal/application/pipeline"
	appsessions "github.com/bryanwahyu/datasense/internal/application/sessions"
	"github.com/bryanwahyu/datasense/internal/config"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
	"github.com/bryanwahyu/datasense/internal/infra/bootstrap"
	"github.com/bryanwahyu/datasense/internal/infra/httpserver"
	"github.com/bryanwahyu/datasense/internal/infra/logging"
	minioStore "github.com/bryanwahyu/datasense/internal/infra/storage"
	"github.com/bryanwahyu/datasense/internal/middleware"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init repo
	repo, db, err := bootstrap.OpenRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("database init error", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	// init minio (optional)
	var archive projects.ArchiveStore
	if cfg.MinioEnabled() {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		archive = store
		logger.Info("upload archive enabled", zap.String("bucket", cfg.Minio.BucketName))
	}

	llm := bootstrap.NewLLM(cfg, logger)

	// init services
	sessionStore := appsessions.NewMemoryStore(application.SystemClock{})
	pipe := &pipeline.Service{
		Sessions: sessionStore,
		Repo:     repo,
		Atlas:    &agents.SchemaAgent{Store: sessionStore, Delay: cfg.Pipeline.AtlasDelay, Logger: logger},
		Sage:     &agents.BusinessAgent{Store: sessionStore, AI: llm, Delay: cfg.Pipeline.SageDelay, Logger: logger},
		Guardian: &agents.QualityAgent{Store: sessionStore, Delay: cfg.Pipeline.GuardianDelay, Logger: logger},
		Clock:    application.SystemClock{},
		Logger:   logger,
		Metrics:  middleware.PipelineRecorder{},
	}
	dict := &dictionary.Service{Sessions: sessionStore, Repo: repo, Logger: logger}
	assistant := &chat.Service{Sessions: sessionStore, Repo: repo, AI: llm, Logger: logger}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
		go limiter.Cleanup(ctx, time.Minute, 10*time.Minute)
	}

	health := map[string]middleware.HealthChecker{}
	if pinger, ok := repo.(middleware.Pinger); ok {
		health["database"] = &middleware.DatabaseHealthChecker{DB: pinger}
	}

	handler := httpserver.NewRouter(httpserver.Options{
		Pipeline:       pipe,
		Dictionary:     dict,
		Chat:           assistant,
		Sessions:       sessionStore,
		Archive:        archive,
		Connector:      httpserver.PostgresConnector,
		DefaultDSN:     cfg.Connect.DemoDSN,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		APIKeys:        cfg.Auth.APIKeys,
		RateLimiter:    limiter,
		Health:         health,
		Logger:         logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
