// Package memory is a process-local projects.Repository, used when no
// database is configured and by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
)

type Repository struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]projects.Project
	fields   map[uuid.UUID][]fields.Analysis
}

var _ projects.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		projects: make(map[uuid.UUID]projects.Project),
		fields:   make(map[uuid.UUID][]fields.Analysis),
	}
}

// SaveProject upserts by project id.
func (r *Repository) SaveProject(_ context.Context, p *projects.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ProjectID] = *p
	return nil
}

// SaveFields stores the dictionary with rates normalised the same way the SQL
// repositories do.
func (r *Repository) SaveFields(_ context.Context, projectID uuid.UUID, items []fields.Analysis) error {
	out := fields.CloneAll(items)
	for i := range out {
		out[i].NullRate = float64(fields.NormalizeRate(out[i].NullRate))
		out[i].UniqueRate = float64(fields.NormalizeRate(out[i].UniqueRate))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[projectID] = out
	return nil
}

func (r *Repository) GetProject(_ context.Context, projectID uuid.UUID) (*projects.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[projectID]
	if !ok {
		return nil, projects.ErrNotFound
	}
	return &p, nil
}

func (r *Repository) GetFields(_ context.Context, projectID uuid.UUID) ([]fields.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fields.CloneAll(r.fields[projectID]), nil
}

func (r *Repository) ListProjects(_ context.Context) ([]*projects.Project, error) {
	r.mu.RLock()
	out := make([]*projects.Project, 0, len(r.projects))
	for _, p := range r.projects {
		p := p
		out = append(out, &p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Repository) UpdateField(_ context.Context, projectID uuid.UUID, fieldName string, u projects.FieldUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.fields[projectID]
	for i := range items {
		if items[i].FieldName != fieldName {
			continue
		}
		if u.Status != nil {
			items[i].Status = *u.Status
		}
		if u.Description != nil {
			items[i].Description = *u.Description
		}
		return nil
	}
	return projects.ErrNotFound
}

// DeleteProject drops fields first, then the project row.
func (r *Repository) DeleteProject(_ context.Context, projectID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[projectID]; !ok {
		return projects.ErrNotFound
	}
	delete(r.fields, projectID)
	delete(r.projects, projectID)
	return nil
}
