package sessions

import (
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
)

// Status of an analysis run
type Status string

const (
	StatusUploading Status = "uploading"
	StatusParsing   Status = "parsing"
	StatusAnalyzing Status = "analyzing"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Agent names one pipeline stage.
type Agent string

const (
	AgentAtlas    Agent = "atlas"
	AgentSage     Agent = "sage"
	AgentGuardian Agent = "guardian"
)

// Agents in pipeline order.
var Agents = []Agent{AgentAtlas, AgentSage, AgentGuardian}

// AgentState enum
type AgentState string

const (
	AgentWaiting  AgentState = "waiting"
	AgentActive   AgentState = "active"
	AgentComplete AgentState = "complete"
	AgentError    AgentState = "error"
	// AgentPending is only reported for projects restored from durable storage.
	AgentPending AgentState = "pending"
)

// LogEntry is one line of an agent's terminal output.
type LogEntry struct {
	Time string `json:"time"`
	Msg  string `json:"msg"`
}

// AgentStatus tracks one stage for one project.
type AgentStatus struct {
	Status   AgentState `json:"status"`
	Progress int        `json:"progress"`
	Logs     []LogEntry `json:"logs"`
}

// Session is the in-memory record of one analysis run.
type Session struct {
	ProjectID   uuid.UUID             `json:"projectId"`
	FileName    string                `json:"fileName"`
	TotalFields int                   `json:"totalFields"`
	Status      Status                `json:"status"`
	Error       string                `json:"error,omitempty"`
	AgentStatus map[Agent]AgentStatus `json:"agentStatus"`
	RawFields   []fields.Sample       `json:"rawFields"`
	Dictionary  []fields.Analysis     `json:"dictionary"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.AgentStatus = make(map[Agent]AgentStatus, len(s.AgentStatus))
	for k, v := range s.AgentStatus {
		v.Logs = append([]LogEntry(nil), v.Logs...)
		out.AgentStatus[k] = v
	}
	if s.RawFields != nil {
		out.RawFields = make([]fields.Sample, len(s.RawFields))
		for i, f := range s.RawFields {
			f.SampleValues = append([]string(nil), f.SampleValues...)
			out.RawFields[i] = f
		}
	}
	out.Dictionary = fields.CloneAll(s.Dictionary)
	return &out
}

// Patch carries the session fields to merge; nil members are left untouched.
type Patch struct {
	FileName    *string
	TotalFields *int
	Status      *Status
	Error       *string
	RawFields   []fields.Sample
	Dictionary  []fields.Analysis
}

// AgentPatch carries agent status fields to merge.
type AgentPatch struct {
	Status   *AgentState
	Progress *int
}

// Summary is the listing view of a session.
type Summary struct {
	ProjectID   uuid.UUID `json:"projectId"`
	FileName    string    `json:"fileName"`
	Status      Status    `json:"status"`
	TotalFields int       `json:"totalFields"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AgentLog is a log line tagged with the agent that wrote it.
type AgentLog struct {
	Agent string `json:"agent"`
	Time  string `json:"time"`
	Msg   string `json:"msg"`
}
