package sessions

import "github.com/google/uuid"

// Store port for live analysis progress. Implementations must be safe for
// concurrent use: a pipeline writes while HTTP polling reads.
type Store interface {
	Create(projectID uuid.UUID, fileName string) *Session
	Get(projectID uuid.UUID) (*Session, bool)
	Update(projectID uuid.UUID, p Patch) (*Session, bool)
	UpdateAgent(projectID uuid.UUID, agent Agent, p AgentPatch) bool
	AddLog(projectID uuid.UUID, agent Agent, msg string) bool
	List() []Summary
	Logs(projectID uuid.UUID) ([]AgentLog, bool)
}

// Ptr is a small helper for building patches.
func Ptr[T any](v T) *T { return &v }
