// Package db holds the row mapping shared by the SQL repositories. Dialect
// specific SQL lives in the postgres and mysql subpackages.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
)

// FieldColumns in the order FieldArgs produces values and ScanField consumes them.
const FieldColumns = `project_id, field_name, table_name, detected_type, description, business_category,
 quality_score, confidence, status, is_primary_key, is_foreign_key, is_nullable,
 null_rate, unique_rate, unique_count, total_count, patterns, sample_values, issues,
 has_pii, pii_type, pii_description, pii_risk_level, gdpr_category, pii_confidence`

// FieldColumnCount is the number of columns in FieldColumns.
const FieldColumnCount = 25

// ProjectColumns in the order ProjectArgs produces values and ScanProject consumes them.
const ProjectColumns = `project_id, file_name, source_type, total_fields, avg_quality, status, metadata, created_at`

// ProjectColumnCount is the number of columns in ProjectColumns.
const ProjectColumnCount = 8

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// FieldArgs flattens one dictionary entry into insert arguments. Rates are
// stored on the integer 0-100 scale.
func FieldArgs(projectID uuid.UUID, f fields.Analysis) ([]any, error) {
	patterns, err := jsonList(f.Patterns)
	if err != nil {
		return nil, fmt.Errorf("encode patterns: %w", err)
	}
	samples, err := jsonList(f.SampleValues)
	if err != nil {
		return nil, fmt.Errorf("encode sample values: %w", err)
	}
	issues, err := jsonList(f.Issues)
	if err != nil {
		return nil, fmt.Errorf("encode issues: %w", err)
	}
	status := f.Status
	if status == "" {
		status = fields.StatusPending
	}
	return []any{
		projectID.String(), f.FieldName, nullString(f.TableName), string(f.DetectedType),
		nullString(f.Description), nullString(string(f.BusinessCategory)),
		f.QualityScore, f.Confidence, string(status),
		f.IsPrimaryKey, f.IsForeignKey, f.IsNullable,
		fields.NormalizeRate(f.NullRate), fields.NormalizeRate(f.UniqueRate),
		f.UniqueCount, f.TotalRows,
		patterns, samples, issues,
		f.HasPII, nullString(f.PIIType), nullString(f.PIIDescription), nullString(string(f.PIIRiskLevel)),
		nullString(f.GDPRCategory), f.PIIConfidence,
	}, nil
}

// ScanField reads one row selected with FieldColumns.
func ScanField(s Scanner) (fields.Analysis, error) {
	var (
		f                                fields.Analysis
		projectID                        string
		tableName, description, category sql.NullString
		piiType, piiDesc, piiRisk, gdpr  sql.NullString
		detected, status                 string
		nullRate, uniqueRate             int
		patterns, samples, issues        sql.NullString
	)
	err := s.Scan(
		&projectID, &f.FieldName, &tableName, &detected, &description, &category,
		&f.QualityScore, &f.Confidence, &status, &f.IsPrimaryKey, &f.IsForeignKey, &f.IsNullable,
		&nullRate, &uniqueRate, &f.UniqueCount, &f.TotalRows, &patterns, &samples, &issues,
		&f.HasPII, &piiType, &piiDesc, &piiRisk, &gdpr, &f.PIIConfidence,
	)
	if err != nil {
		return fields.Analysis{}, err
	}
	f.TableName = tableName.String
	f.DetectedType = fields.DetectedType(detected)
	f.Description = description.String
	f.BusinessCategory = fields.BusinessCategory(category.String)
	f.Status = fields.ReviewStatus(status)
	f.NullRate = float64(nullRate)
	f.UniqueRate = float64(uniqueRate)
	f.PIIType = piiType.String
	f.PIIDescription = piiDesc.String
	f.PIIRiskLevel = fields.RiskLevel(piiRisk.String)
	f.GDPRCategory = gdpr.String

	if f.Patterns, err = decodeList[fields.Pattern](patterns); err != nil {
		return fields.Analysis{}, fmt.Errorf("decode patterns: %w", err)
	}
	if f.SampleValues, err = decodeList[string](samples); err != nil {
		return fields.Analysis{}, fmt.Errorf("decode sample values: %w", err)
	}
	if f.Issues, err = decodeList[string](issues); err != nil {
		return fields.Analysis{}, fmt.Errorf("decode issues: %w", err)
	}
	return f, nil
}

// ProjectArgs flattens a project into insert arguments.
func ProjectArgs(p *projects.Project) ([]any, error) {
	var metadata any
	if p.Metadata != nil {
		b, err := json.Marshal(p.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(b)
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return []any{
		p.ProjectID.String(), p.FileName, string(p.SourceType), p.TotalFields, p.AvgQuality,
		p.Status, metadata, created.UTC(),
	}, nil
}

// ScanProject reads one row selected with ProjectColumns.
func ScanProject(s Scanner) (*projects.Project, error) {
	var (
		p          projects.Project
		id, source string
		metadata   sql.NullString
	)
	if err := s.Scan(&id, &p.FileName, &source, &p.TotalFields, &p.AvgQuality, &p.Status, &metadata, &p.CreatedAt); err != nil {
		return nil, err
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse project id %q: %w", id, err)
	}
	p.ProjectID = pid
	p.SourceType = projects.SourceType(source)
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &p, nil
}

func jsonList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func decodeList[T any](s sql.NullString) ([]T, error) {
	out := []T{}
	if !s.Valid || s.String == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// nullString stores empty strings as NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
