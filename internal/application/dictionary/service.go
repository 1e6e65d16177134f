// Package dictionary serves finished (or running) analyses to readers and
// applies reviewer edits. The in-memory session wins; the durable repository
// is the fallback after a restart.
package dictionary

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/application/agents"
	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
	"github.com/bryanwahyu/datasense/internal/domain/sessions"
)

var (
	// ErrInProgress is returned for a dictionary whose analysis has not finished.
	ErrInProgress = errors.New("analysis still in progress")
	// ErrInvalidStatus rejects a review status outside approved|pending|rejected.
	ErrInvalidStatus = errors.New("invalid status")
)

type Service struct {
	Sessions sessions.Store
	Repo     projects.Repository // optional
	Logger   *zap.Logger

	// serialises read-modify-write of in-memory dictionaries
	editMu sync.Mutex
}

// Progress is the polling view of one analysis.
type Progress struct {
	ProjectID   uuid.UUID                               `json:"projectId"`
	FileName    string                                  `json:"fileName"`
	Status      sessions.Status                         `json:"status"`
	TotalFields int                                     `json:"totalFields"`
	AgentStatus map[sessions.Agent]sessions.AgentStatus `json:"agentStatus"`
	Error       string                                  `json:"error,omitempty"`
}

// View is a dictionary with its headline numbers.
type View struct {
	ProjectID   uuid.UUID         `json:"projectId"`
	FileName    string            `json:"fileName"`
	Status      sessions.Status   `json:"status,omitempty"`
	TotalFields int               `json:"totalFields"`
	AvgQuality  int               `json:"avgQuality"`
	Approved    int               `json:"approved"`
	Pending     int               `json:"pending"`
	Rejected    int               `json:"rejected"`
	Fields      []fields.Analysis `json:"fields"`
}

func (s *Service) Progress(ctx context.Context, projectID uuid.UUID) (*Progress, error) {
	if sess, ok := s.Sessions.Get(projectID); ok {
		return &Progress{
			ProjectID:   sess.ProjectID,
			FileName:    sess.FileName,
			Status:      sess.Status,
			TotalFields: sess.TotalFields,
			AgentStatus: sess.AgentStatus,
			Error:       sess.Error,
		}, nil
	}

	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	// no live logs survive a restart
	state := sessions.AgentPending
	if p.Status == string(sessions.StatusComplete) {
		state = sessions.AgentComplete
	}
	agentStatus := make(map[sessions.Agent]sessions.AgentStatus, len(sessions.Agents))
	for _, a := range sessions.Agents {
		progress := 0
		if state == sessions.AgentComplete {
			progress = 100
		}
		agentStatus[a] = sessions.AgentStatus{Status: state, Progress: progress, Logs: []sessions.LogEntry{}}
	}
	return &Progress{
		ProjectID:   p.ProjectID,
		FileName:    p.FileName,
		Status:      sessions.Status(p.Status),
		TotalFields: p.TotalFields,
		AgentStatus: agentStatus,
	}, nil
}

// Logs returns every agent's log lines; empty for projects not held in memory.
func (s *Service) Logs(projectID uuid.UUID) []sessions.AgentLog {
	logs, ok := s.Sessions.Logs(projectID)
	if !ok {
		return []sessions.AgentLog{}
	}
	return logs
}

// Dictionary returns the finished dictionary. A session that is still running
// yields ErrInProgress together with a View carrying only its status.
func (s *Service) Dictionary(ctx context.Context, projectID uuid.UUID) (*View, error) {
	if sess, ok := s.Sessions.Get(projectID); ok {
		if sess.Status != sessions.StatusComplete {
			return &View{ProjectID: projectID, Status: sess.Status}, ErrInProgress
		}
		v := NewView(projectID, sess.FileName, sess.TotalFields, sess.Dictionary)
		return v, nil
	}

	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items, err := s.Repo.GetFields(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get fields: %w", err)
	}
	if len(items) == 0 {
		return nil, projects.ErrNotFound
	}
	return NewView(projectID, p.FileName, p.TotalFields, items), nil
}

// NewView summarises a finished dictionary.
func NewView(projectID uuid.UUID, fileName string, total int, items []fields.Analysis) *View {
	if items == nil {
		items = []fields.Analysis{}
	}
	sum := agents.Summarize(items)
	return &View{
		ProjectID:   projectID,
		FileName:    fileName,
		Status:      sessions.StatusComplete,
		TotalFields: total,
		AvgQuality:  sum.AvgQuality,
		Approved:    sum.Approved,
		Pending:     sum.Pending,
		Rejected:    sum.Rejected,
		Fields:      items,
	}
}

// UpdateField applies a reviewer edit. Nil or empty members are left alone.
// When the project is in memory the updated field is returned; a durable-only
// edit returns nil.
func (s *Service) UpdateField(ctx context.Context, projectID uuid.UUID, fieldName string, u projects.FieldUpdate) (*fields.Analysis, error) {
	if u.Status != nil && !u.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *u.Status)
	}
	if u.Description != nil && *u.Description == "" {
		u.Description = nil
	}

	if updated, ok := s.updateInMemory(projectID, fieldName, u); ok {
		// keep the durable copy in step
		if s.Repo != nil {
			if err := s.Repo.UpdateField(ctx, projectID, fieldName, u); err != nil && !errors.Is(err, projects.ErrNotFound) {
				s.logger().Warn("durable field update failed",
					zap.String("project_id", projectID.String()),
					zap.String("field", fieldName),
					zap.Error(err))
			}
		}
		return updated, nil
	}

	if s.Repo == nil {
		return nil, projects.ErrNotFound
	}
	if err := s.Repo.UpdateField(ctx, projectID, fieldName, u); err != nil {
		return nil, fmt.Errorf("update field: %w", err)
	}
	return nil, nil
}

func (s *Service) updateInMemory(projectID uuid.UUID, fieldName string, u projects.FieldUpdate) (*fields.Analysis, bool) {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	sess, ok := s.Sessions.Get(projectID)
	if !ok {
		return nil, false
	}
	idx := -1
	for i := range sess.Dictionary {
		if sess.Dictionary[i].FieldName == fieldName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	dict := sess.Dictionary
	if u.Status != nil {
		dict[idx].Status = *u.Status
	}
	if u.Description != nil {
		dict[idx].Description = *u.Description
	}
	s.Sessions.Update(projectID, sessions.Patch{Dictionary: dict})
	out := dict[idx].Clone()
	return &out, true
}

// Projects lists durable projects, newest first.
func (s *Service) Projects(ctx context.Context) ([]*projects.Project, error) {
	if s.Repo == nil {
		return []*projects.Project{}, nil
	}
	list, err := s.Repo.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if list == nil {
		list = []*projects.Project{}
	}
	return list, nil
}

// Project returns one durable project with its stored fields.
func (s *Service) Project(ctx context.Context, projectID uuid.UUID) (*projects.ProjectWithFields, error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items, err := s.Repo.GetFields(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get fields: %w", err)
	}
	if items == nil {
		items = []fields.Analysis{}
	}
	return &projects.ProjectWithFields{Project: *p, Fields: items}, nil
}

// DeleteProject removes the durable project and its fields.
func (s *Service) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	if s.Repo == nil {
		return projects.ErrNotFound
	}
	if err := s.Repo.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *Service) project(ctx context.Context, projectID uuid.UUID) (*projects.Project, error) {
	if s.Repo == nil {
		return nil, projects.ErrNotFound
	}
	p, err := s.Repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
