package projects

import (
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
)

// SourceType of an analysed dataset
type SourceType string

const (
	SourceCSV      SourceType = "csv"
	SourceExcel    SourceType = "excel"
	SourcePostgres SourceType = "postgresql"
)

// Project is the durable record of a completed analysis.
type Project struct {
	ProjectID   uuid.UUID      `json:"project_id"`
	FileName    string         `json:"file_name"`
	SourceType  SourceType     `json:"source_type"`
	TotalFields int            `json:"total_fields"`
	AvgQuality  int            `json:"avg_quality"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ProjectWithFields is a project plus its stored dictionary.
type ProjectWithFields struct {
	Project
	Fields []fields.Analysis `json:"fields"`
}

// FieldUpdate holds the user-editable parts of a stored field.
type FieldUpdate struct {
	Status      *fields.ReviewStatus
	Description *string
}
