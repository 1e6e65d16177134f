package projects

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
)

// ErrNotFound is returned when a project or field has no durable record.
var ErrNotFound = errors.New("project not found")

// Repository port (persistence gateway for completed dictionaries)
type Repository interface {
	SaveProject(ctx context.Context, p *Project) error
	SaveFields(ctx context.Context, projectID uuid.UUID, items []fields.Analysis) error
	GetProject(ctx context.Context, projectID uuid.UUID) (*Project, error)
	GetFields(ctx context.Context, projectID uuid.UUID) ([]fields.Analysis, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateField(ctx context.Context, projectID uuid.UUID, fieldName string, u FieldUpdate) error
	DeleteProject(ctx context.Context, projectID uuid.UUID) error
}

// ArchiveStore port (penyimpanan file upload mentah)
type ArchiveStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}
