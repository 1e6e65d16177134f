package agents

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/application"
	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/sessions"
)

const (
	approvedMinScore = 85
	pendingMinScore  = 60
	maxConfidence    = 90
)

// QualityAgent scores each field, flags personal data and assigns a review status.
type QualityAgent struct {
	Store  sessions.Store
	Delay  time.Duration
	Logger *zap.Logger
}

// Run produces the final dictionary. Only ctx cancellation is returned as an error.
func (a *QualityAgent) Run(ctx context.Context, projectID uuid.UUID, in []fields.Analysis) ([]fields.Analysis, error) {
	rep := reporter{store: a.Store, projectID: projectID, agent: sessions.AgentGuardian}
	rep.start()
	rep.logf("Received %d fields from Sage", len(in))
	rep.logf("Starting quality assessment and PII detection")

	out := make([]fields.Analysis, 0, len(in))
	for i, f := range in {
		rep.step(i, len(in))

		next := Assess(f)
		switch {
		case next.HasPII:
			rep.logf("%s — Quality: %d%% [PII: %s]", f.FieldName, next.QualityScore, next.PIIDescription)
		case len(next.Issues) > 0:
			rep.logf("Issues on %s: %s", f.FieldName, strings.Join(next.Issues, ", "))
		default:
			rep.logf("%s — Quality: %d%%", f.FieldName, next.QualityScore)
		}
		out = append(out, next)

		if err := application.Pause(ctx, a.Delay); err != nil {
			rep.fail()
			return nil, err
		}
	}

	rep.complete()
	summary := Summarize(out)
	rep.logf("Quality assessment complete. Avg score: %d%%", summary.AvgQuality)
	rep.logf("%d approved, %d pending review", summary.Approved, summary.Pending)
	if summary.PII > 0 {
		rep.logf("GDPR WARNING: %d %s PII", summary.PII, plural(summary.PII, "field contains", "fields contain"))
		if summary.CriticalPII > 0 {
			rep.logf("%d %s CRITICAL risk", summary.CriticalPII, plural(summary.CriticalPII, "field is", "fields are"))
		}
	}
	if a.Logger != nil {
		a.Logger.Debug("quality stage done",
			zap.String("project_id", projectID.String()),
			zap.Int("avg_quality", summary.AvgQuality),
			zap.Int("pii_fields", summary.PII))
	}
	return out, nil
}

// Assess returns a copy of f with score, confidence, PII, issues and status filled in.
func Assess(f fields.Analysis) fields.Analysis {
	next := f.Clone()
	pii := DetectPII(f.FieldName, f.SampleValues)

	next.QualityScore = QualityScore(f)
	next.Confidence = ConfidenceScore(f)
	next.Issues = Issues(f, pii)
	next.Status = StatusForScore(next.QualityScore)
	next.HasPII = pii.Detected()
	if pii.Detected() {
		next.PIIType = pii.Rule.Type
		next.PIIDescription = pii.Rule.Description
		next.PIIRiskLevel = pii.Rule.Risk
		next.GDPRCategory = pii.Rule.GDPRCategory
		next.PIIConfidence = pii.Confidence
	}
	return next
}

// QualityScore starts at 100 and subtracts for missing data, low cardinality,
// weak descriptions, unresolved types and tiny datasets. Result is in [0,100].
func QualityScore(f fields.Analysis) int {
	score := 100

	switch {
	case f.NullRate > 50:
		score -= 30
	case f.NullRate > 20:
		score -= 20
	case f.NullRate > 5:
		score -= 10
	}

	if f.DetectedType != fields.TypeBoolean && !f.HasPattern(fields.PatternCategorical) &&
		f.UniqueRate < 10 && !f.IsPrimaryKey {
		score -= 10
	}

	if f.IsPrimaryKey {
		score = min(score+5, 100)
	}
	if utf8.RuneCountInString(f.Description) < 10 {
		score -= 15
	}
	if f.DetectedType == fields.TypeUnknown {
		score -= 20
	}
	if f.TotalRows < 10 {
		score -= 10
	}

	return max(min(score, 100), 0)
}

// ConfidenceScore measures how much sample evidence backs the analysis, capped at 90.
func ConfidenceScore(f fields.Analysis) int {
	confidence := 50

	switch n := len(f.SampleValues); {
	case n >= 5:
		confidence += 20
	case n >= 3:
		confidence += 10
	}
	if f.NullRate < 0.1 {
		confidence += 15
	}
	if len(f.Patterns) > 0 {
		confidence += 10
	}
	if utf8.RuneCountInString(f.Description) > 20 {
		confidence += 10
	}
	if f.IsPrimaryKey || f.IsForeignKey {
		confidence += 15
	}

	return min(maxConfidence, confidence)
}

// Issues lists human-readable problems in a fixed order.
func Issues(f fields.Analysis, pii PIIMatch) []string {
	issues := []string{}
	if f.NullRate > 30 {
		issues = append(issues, fmt.Sprintf("High null rate (%s%%)", formatRate(f.NullRate)))
	}
	if f.NullRate > 50 {
		issues = append(issues, "More than half the values are missing")
	}
	if f.DetectedType == fields.TypeUnknown {
		issues = append(issues, "Could not determine data type reliably")
	}
	if len(f.SampleValues) < 2 {
		issues = append(issues, "Insufficient sample data for analysis")
	}
	if pii.Detected() {
		issues = append(issues, fmt.Sprintf("Contains PII: %s (%s)", pii.Rule.Description, pii.Rule.GDPRCategory))
	}
	if f.IsPrimaryKey && f.NullRate > 0 {
		issues = append(issues, "Primary key should not have null values")
	}
	return issues
}

// StatusForScore maps a quality score to a review status.
func StatusForScore(score int) fields.ReviewStatus {
	switch {
	case score >= approvedMinScore:
		return fields.StatusApproved
	case score >= pendingMinScore:
		return fields.StatusPending
	}
	return fields.StatusRejected
}

// Summary aggregates a finished dictionary.
type Summary struct {
	AvgQuality  int `json:"avgQuality"`
	Approved    int `json:"approved"`
	Pending     int `json:"pending"`
	Rejected    int `json:"rejected"`
	PII         int `json:"pii"`
	CriticalPII int `json:"criticalPii"`
}

// Summarize computes the rounded mean quality score and status/PII counts.
// An empty dictionary averages to 0.
func Summarize(items []fields.Analysis) Summary {
	var s Summary
	total := 0
	for _, f := range items {
		total += f.QualityScore
		switch f.Status {
		case fields.StatusApproved:
			s.Approved++
		case fields.StatusPending:
			s.Pending++
		case fields.StatusRejected:
			s.Rejected++
		}
		if f.HasPII {
			s.PII++
			if f.PIIRiskLevel == fields.RiskCritical {
				s.CriticalPII++
			}
		}
	}
	if len(items) > 0 {
		s.AvgQuality = int(math.Round(float64(total) / float64(len(items))))
	}
	return s
}
