// Package sessions keeps live analysis progress in memory for polling clients.
package sessions

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bryanwahyu/datasense/internal/application"
	domain "github.com/bryanwahyu/datasense/internal/domain/sessions"
)

const logTimeLayout = "15:04:05"

type entry struct {
	mu sync.Mutex
	s  *domain.Session
}

// MemoryStore is a process-wide session store. The map is guarded by an RWMutex
// and every session by its own mutex, so one project's pipeline never blocks
// polling of another. Readers always receive copies.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
	clock    application.Clock
}

var _ domain.Store = (*MemoryStore)(nil)

func NewMemoryStore(clock application.Clock) *MemoryStore {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*entry),
		clock:    clock,
	}
}

// Create registers a new session with every agent waiting. Calling it twice for
// the same id replaces the earlier session.
func (m *MemoryStore) Create(projectID uuid.UUID, fileName string) *domain.Session {
	s := &domain.Session{
		ProjectID:   projectID,
		FileName:    fileName,
		Status:      domain.StatusUploading,
		AgentStatus: make(map[domain.Agent]domain.AgentStatus, len(domain.Agents)),
		RawFields:   nil,
		Dictionary:  nil,
		CreatedAt:   m.clock.Now(),
	}
	for _, a := range domain.Agents {
		s.AgentStatus[a] = domain.AgentStatus{Status: domain.AgentWaiting, Progress: 0, Logs: []domain.LogEntry{}}
	}

	m.mu.Lock()
	m.sessions[projectID] = &entry{s: s}
	m.mu.Unlock()

	return s.Clone()
}

func (m *MemoryStore) lookup(projectID uuid.UUID) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[projectID]
}

// Get returns a snapshot of the session, or false if this process never saw it.
func (m *MemoryStore) Get(projectID uuid.UUID) (*domain.Session, bool) {
	e := m.lookup(projectID)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone(), true
}

// Update merges the non-nil members of p into the session. Unknown ids are a no-op.
func (m *MemoryStore) Update(projectID uuid.UUID, p domain.Patch) (*domain.Session, bool) {
	e := m.lookup(projectID)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.s
	if p.FileName != nil {
		s.FileName = *p.FileName
	}
	if p.TotalFields != nil {
		s.TotalFields = *p.TotalFields
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Error != nil {
		s.Error = *p.Error
	}
	if p.RawFields != nil {
		s.RawFields = p.RawFields
	}
	if p.Dictionary != nil {
		s.Dictionary = p.Dictionary
	}
	return s.Clone(), true
}

// UpdateAgent merges p into one agent's status. Progress only moves backwards
// when the same patch also changes the agent state.
func (m *MemoryStore) UpdateAgent(projectID uuid.UUID, agent domain.Agent, p domain.AgentPatch) bool {
	e := m.lookup(projectID)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.s.AgentStatus[agent]
	if p.Status != nil && *p.Status != st.Status {
		st.Status = *p.Status
		if p.Progress != nil {
			st.Progress = clampProgress(*p.Progress)
		}
	} else if p.Progress != nil && *p.Progress > st.Progress {
		st.Progress = clampProgress(*p.Progress)
	}
	e.s.AgentStatus[agent] = st
	return true
}

// AddLog appends a timestamped line to an agent's log.
func (m *MemoryStore) AddLog(projectID uuid.UUID, agent domain.Agent, msg string) bool {
	e := m.lookup(projectID)
	if e == nil {
		return false
	}
	now := m.clock.Now().Format(logTimeLayout)

	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.s.AgentStatus[agent]
	st.Logs = append(st.Logs, domain.LogEntry{Time: now, Msg: msg})
	e.s.AgentStatus[agent] = st
	return true
}

// List returns every session known to this process, newest first.
func (m *MemoryStore) List() []domain.Summary {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]domain.Summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, domain.Summary{
			ProjectID:   e.s.ProjectID,
			FileName:    e.s.FileName,
			Status:      e.s.Status,
			TotalFields: e.s.TotalFields,
			CreatedAt:   e.s.CreatedAt,
		})
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Logs flattens the logs of all agents in pipeline order.
func (m *MemoryStore) Logs(projectID uuid.UUID) ([]domain.AgentLog, bool) {
	e := m.lookup(projectID)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	out := []domain.AgentLog{}
	for _, a := range domain.Agents {
		for _, l := range e.s.AgentStatus[a].Logs {
			out = append(out, domain.AgentLog{Agent: strings.ToUpper(string(a)), Time: l.Time, Msg: l.Msg})
		}
	}
	return out, true
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
