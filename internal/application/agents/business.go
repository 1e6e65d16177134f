package agents

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/application"
	"github.com/bryanwahyu/datasense/internal/domain/ai"
	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/sessions"
)

const promptSampleLimit = 3

// BusinessAgent asks the language model for a one-sentence description and a
// business category per field. Any per-field failure falls back to a template.
type BusinessAgent struct {
	Store  sessions.Store
	AI     ai.Client // nil means every field gets the template description
	Delay  time.Duration
	Logger *zap.Logger
}

// Run describes every field in order. Only ctx cancellation is returned as an error.
func (a *BusinessAgent) Run(ctx context.Context, projectID uuid.UUID, in []fields.Analysis, fileName string) ([]fields.Analysis, error) {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rep := reporter{store: a.Store, projectID: projectID, agent: sessions.AgentSage}
	rep.start()
	rep.logf("Received %d fields from Atlas", len(in))
	rep.logf("Initializing language model for business context generation")

	out := make([]fields.Analysis, 0, len(in))
	for i, f := range in {
		rep.step(i, len(in))
		rep.logf("Generating description for: %s", f.FieldName)

		next := f.Clone()
		desc, err := a.describe(ctx, f, fileName)
		if err != nil {
			if ctx.Err() != nil {
				rep.fail()
				return nil, ctx.Err()
			}
			logger.Warn("description fallback",
				zap.String("project_id", projectID.String()),
				zap.String("field", f.FieldName),
				zap.Error(err))
			next.Description = FallbackDescription(f)
			next.BusinessCategory = fields.CategoryOther
			rep.logf("⚠ Fallback description for: %s", f.FieldName)
		} else {
			next.Description = desc.Description
			next.BusinessCategory = desc.BusinessCategory
			rep.logf("✓ %s: %s...", f.FieldName, truncate(desc.Description, 60))
		}
		out = append(out, next)

		// jeda antar panggilan supaya tidak kena rate limit
		if err := application.Pause(ctx, a.Delay); err != nil {
			rep.fail()
			return nil, err
		}
	}

	rep.complete()
	rep.logf("Business context complete. %d fields described. Handoff → GUARDIAN", len(in))
	return out, nil
}

func (a *BusinessAgent) describe(ctx context.Context, f fields.Analysis, fileName string) (desc ai.Description, err error) {
	if a.AI == nil {
		return ai.Description{}, fmt.Errorf("no language model configured")
	}
	// a misbehaving client must not take the whole stage down
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("language model client panicked: %v", r)
		}
	}()

	samples := f.SampleValues
	if len(samples) > promptSampleLimit {
		samples = samples[:promptSampleLimit]
	}
	raw, err := a.AI.DescribeField(ctx, ai.FieldContext{
		FieldName:    f.FieldName,
		DetectedType: f.DetectedType,
		SampleValues: append([]string(nil), samples...),
		FileName:     fileName,
		IsPrimaryKey: f.IsPrimaryKey,
		Patterns:     append([]fields.Pattern(nil), f.Patterns...),
	})
	if err != nil {
		return ai.Description{}, err
	}
	return ai.ParseDescription(raw)
}

// FallbackDescription picks a deterministic description, most specific signal first.
func FallbackDescription(f fields.Analysis) string {
	name := strings.ReplaceAll(f.FieldName, "_", " ")
	switch {
	case f.IsPrimaryKey:
		return "Unique identifier for each record in this dataset."
	case f.IsForeignKey:
		return "Reference key linking to a related entity."
	case f.DetectedType == fields.TypeDatetime:
		return fmt.Sprintf("Timestamp recording when the %s event occurred.", name)
	case f.DetectedType == fields.TypeBoolean:
		return fmt.Sprintf("Boolean flag indicating the %s state.", name)
	case f.DetectedType.IsNumeric():
		return fmt.Sprintf("Numerical value representing the %s.", name)
	case f.HasPattern(fields.PatternEmail):
		return "Email address field used for contact or identification."
	case f.HasPattern(fields.PatternPhone):
		return "Phone number used for contact or verification."
	case f.HasPattern(fields.PatternCategorical):
		return fmt.Sprintf("Categorical field representing %s classification.", name)
	}
	return fmt.Sprintf("Field containing %s information.", name)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
