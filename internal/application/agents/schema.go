package agents

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/application"
	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/sessions"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern   = regexp.MustCompile(`^\+?[\d\s\-()]{7,}$`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	urlPattern     = regexp.MustCompile(`^https?://`)
)

// categoricalMaxUnique is the distinct-value count below which a string field is categorical.
const categoricalMaxUnique = 20

// SchemaAgent detects keys and value patterns from column metadata alone.
type SchemaAgent struct {
	Store  sessions.Store
	Delay  time.Duration
	Logger *zap.Logger
}

// Run enriches every field with key flags and patterns. It only fails when ctx
// is cancelled during a pacing pause.
func (a *SchemaAgent) Run(ctx context.Context, projectID uuid.UUID, in []fields.Analysis) ([]fields.Analysis, error) {
	rep := reporter{store: a.Store, projectID: projectID, agent: sessions.AgentAtlas}
	rep.start()
	rep.logf("Starting schema analysis on %d fields", len(in))

	out := make([]fields.Analysis, 0, len(in))
	for i, f := range in {
		rep.step(i, len(in))
		rep.logf("Scanning column: %s (%s)", f.FieldName, strings.ToUpper(string(f.DetectedType)))

		next := f.Clone()
		next.IsPrimaryKey = DetectPrimaryKey(f.Sample)
		next.IsForeignKey = DetectForeignKey(f.Sample)
		next.Patterns = DetectPatterns(f.Sample)

		if next.IsPrimaryKey {
			rep.logf("Primary key detected on: %s", f.FieldName)
		}
		if next.IsForeignKey {
			rep.logf("Foreign key pattern detected: %s", f.FieldName)
		}
		rep.logf("Null rate: %s%% | Unique rate: %s%%", formatRate(f.NullRate), formatRate(f.UniqueRate))

		out = append(out, next)

		if err := application.Pause(ctx, a.Delay); err != nil {
			rep.fail()
			return nil, err
		}
	}

	rep.complete()
	rep.logf("Schema analysis complete. %d fields processed. Handoff → SAGE", len(in))
	if a.Logger != nil {
		a.Logger.Debug("schema stage done", zap.String("project_id", projectID.String()), zap.Int("fields", len(out)))
	}
	return out, nil
}

// DetectPrimaryKey: id-like name, almost fully unique and never null.
func DetectPrimaryKey(s fields.Sample) bool {
	name := strings.ToLower(s.FieldName)
	idLike := name == "id" || strings.HasSuffix(name, "_id") || strings.HasSuffix(name, "id")
	return idLike && s.UniqueRate > 95 && s.NullRate == 0
}

// DetectForeignKey: *_id names that did not qualify as a primary key.
func DetectForeignKey(s fields.Sample) bool {
	return strings.HasSuffix(strings.ToLower(s.FieldName), "_id") && !DetectPrimaryKey(s)
}

// DetectPatterns checks the cached sample values; detection is only as good as
// those few samples.
func DetectPatterns(s fields.Sample) []fields.Pattern {
	patterns := []fields.Pattern{}
	if anyMatch(s.SampleValues, emailPattern) {
		patterns = append(patterns, fields.PatternEmail)
	}
	if anyMatch(s.SampleValues, phonePattern) {
		patterns = append(patterns, fields.PatternPhone)
	}
	if anyMatch(s.SampleValues, isoDatePattern) {
		patterns = append(patterns, fields.PatternISODate)
	}
	if anyMatch(s.SampleValues, urlPattern) {
		patterns = append(patterns, fields.PatternURL)
	}
	if s.DetectedType == fields.TypeString && s.UniqueCount < categoricalMaxUnique {
		patterns = append(patterns, fields.PatternCategorical)
	}
	return patterns
}

func anyMatch(values []string, re *regexp.Regexp) bool {
	for _, v := range values {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
