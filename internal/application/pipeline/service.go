// Package pipeline runs the three analysis stages for one project and records
// the outcome in the session store and the durable repository.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/application"
	"github.com/bryanwahyu/datasense/internal/application/agents"
	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
	"github.com/bryanwahyu/datasense/internal/domain/sessions"
)

// SchemaStage and QualityStage transform the accumulated field list.
type SchemaStage interface {
	Run(ctx context.Context, projectID uuid.UUID, in []fields.Analysis) ([]fields.Analysis, error)
}

type BusinessStage interface {
	Run(ctx context.Context, projectID uuid.UUID, in []fields.Analysis, fileName string) ([]fields.Analysis, error)
}

type QualityStage interface {
	Run(ctx context.Context, projectID uuid.UUID, in []fields.Analysis) ([]fields.Analysis, error)
}

// Recorder receives pipeline counters. middleware.PipelineRecorder is the
// production implementation.
type Recorder interface {
	PipelineStarted()
	PipelineFinished(err error)
	PersistFailed()
}

type nopRecorder struct{}

func (nopRecorder) PipelineStarted()       {}
func (nopRecorder) PipelineFinished(error) {}
func (nopRecorder) PersistFailed()         {}

// Service orchestrates Atlas → Sage → Guardian.
// Service is safe for concurrent use; every project runs in its own goroutine.
type Service struct {
	Sessions sessions.Store
	Repo     projects.Repository // optional
	Atlas    SchemaStage
	Sage     BusinessStage
	Guardian QualityStage
	Clock    application.Clock
	Logger   *zap.Logger
	Metrics  Recorder
}

// Job describes one analysis. Exactly one of Fields or Source is expected;
// when Source is set the sampling happens inside the background task.
type Job struct {
	ProjectID  uuid.UUID
	FileName   string
	SourceType projects.SourceType
	Metadata   map[string]any
	Fields     []fields.Sample
	Source     fields.Sampler
	// Cleanup runs once the job is finished, whatever the outcome.
	Cleanup func()
}

// Result of a finished job.
type Result struct {
	ProjectID   uuid.UUID
	TotalFields int
	AvgQuality  int
	Dictionary  []fields.Analysis
	Err         error
}

// Start creates the session and runs the job in a detached goroutine with a
// background context, so the HTTP request that triggered it can return at once.
// The returned channel yields exactly one Result and is then closed.
func (s *Service) Start(job Job) <-chan Result {
	s.Sessions.Create(job.ProjectID, job.FileName)
	done := make(chan Result, 1)
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("pipeline panic: %v", r)
				s.logger().Error("pipeline panicked",
					zap.String("project_id", job.ProjectID.String()),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				s.fail(job.ProjectID, err)
				s.metrics().PipelineFinished(err)
				done <- Result{ProjectID: job.ProjectID, Err: err}
			}
		}()
		res, err := s.Run(context.Background(), job)
		res.Err = err
		done <- res
	}()
	return done
}

// Run executes the job synchronously. The session for job.ProjectID must already exist.
func (s *Service) Run(ctx context.Context, job Job) (Result, error) {
	if job.Cleanup != nil {
		defer job.Cleanup()
	}
	logger := s.logger().With(zap.String("project_id", job.ProjectID.String()), zap.String("file", job.FileName))
	s.metrics().PipelineStarted()
	res := Result{ProjectID: job.ProjectID}

	samples := job.Fields
	if job.Source != nil {
		s.Sessions.Update(job.ProjectID, sessions.Patch{Status: sessions.Ptr(sessions.StatusParsing)})
		var err error
		samples, err = job.Source.Sample(ctx)
		if err != nil {
			err = fmt.Errorf("sample %s: %w", job.FileName, err)
			return res, s.abort(logger, job.ProjectID, err)
		}
	}
	if samples == nil {
		samples = []fields.Sample{}
	}

	res.TotalFields = len(samples)
	s.Sessions.Update(job.ProjectID, sessions.Patch{
		Status:      sessions.Ptr(sessions.StatusAnalyzing),
		TotalFields: sessions.Ptr(len(samples)),
		RawFields:   samples,
	})
	logger.Info("analysis started", zap.Int("fields", len(samples)))

	acc := fields.FromSamples(samples)
	acc, err := s.Atlas.Run(ctx, job.ProjectID, acc)
	if err != nil {
		return res, s.abort(logger, job.ProjectID, fmt.Errorf("schema stage: %w", err))
	}
	acc, err = s.Sage.Run(ctx, job.ProjectID, acc, job.FileName)
	if err != nil {
		return res, s.abort(logger, job.ProjectID, fmt.Errorf("business stage: %w", err))
	}
	acc, err = s.Guardian.Run(ctx, job.ProjectID, acc)
	if err != nil {
		return res, s.abort(logger, job.ProjectID, fmt.Errorf("quality stage: %w", err))
	}

	summary := agents.Summarize(acc)
	res.AvgQuality = summary.AvgQuality
	res.Dictionary = acc
	s.Sessions.Update(job.ProjectID, sessions.Patch{
		Status:     sessions.Ptr(sessions.StatusComplete),
		Dictionary: acc,
	})
	s.metrics().PipelineFinished(nil)
	logger.Info("analysis complete",
		zap.Int("avg_quality", summary.AvgQuality),
		zap.Int("pii_fields", summary.PII))

	// completion stands even if the durable write fails
	s.persist(ctx, logger, job, summary.AvgQuality, acc)
	return res, nil
}

func (s *Service) persist(ctx context.Context, logger *zap.Logger, job Job, avg int, dict []fields.Analysis) {
	if s.Repo == nil {
		return
	}
	p := &projects.Project{
		ProjectID:   job.ProjectID,
		FileName:    job.FileName,
		SourceType:  job.SourceType,
		TotalFields: len(dict),
		AvgQuality:  avg,
		Status:      string(sessions.StatusComplete),
		Metadata:    job.Metadata,
		CreatedAt:   s.now(),
	}
	if err := s.Repo.SaveProject(ctx, p); err != nil {
		s.metrics().PersistFailed()
		logger.Error("save project failed", zap.Error(err))
		return
	}
	if err := s.Repo.SaveFields(ctx, job.ProjectID, dict); err != nil {
		s.metrics().PersistFailed()
		logger.Error("save fields failed", zap.Error(err))
	}
}

func (s *Service) abort(logger *zap.Logger, projectID uuid.UUID, err error) error {
	logger.Error("analysis failed", zap.Error(err))
	s.fail(projectID, err)
	s.metrics().PipelineFinished(err)
	return err
}

func (s *Service) fail(projectID uuid.UUID, err error) {
	s.Sessions.Update(projectID, sessions.Patch{
		Status: sessions.Ptr(sessions.StatusError),
		Error:  sessions.Ptr(err.Error()),
	})
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) metrics() Recorder {
	if s.Metrics == nil {
		return nopRecorder{}
	}
	return s.Metrics
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}
