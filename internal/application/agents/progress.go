// Package agents implements the three analysis stages: schema (Atlas),
// business context (Sage) and quality/privacy (Guardian).
package agents

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/bryanwahyu/datasense/internal/domain/sessions"
)

// reporter writes one stage's progress and logs into the session store.
type reporter struct {
	store     sessions.Store
	projectID uuid.UUID
	agent     sessions.Agent
}

func (r reporter) start() {
	r.store.UpdateAgent(r.projectID, r.agent, sessions.AgentPatch{
		Status:   sessions.Ptr(sessions.AgentActive),
		Progress: sessions.Ptr(5),
	})
}

// step reports the beginning of field i of n: 10% at the first field, ramping
// linearly towards 95%.
func (r reporter) step(i, n int) {
	r.store.UpdateAgent(r.projectID, r.agent, sessions.AgentPatch{Progress: sessions.Ptr(rampProgress(i, n))})
}

func (r reporter) complete() {
	r.store.UpdateAgent(r.projectID, r.agent, sessions.AgentPatch{
		Status:   sessions.Ptr(sessions.AgentComplete),
		Progress: sessions.Ptr(100),
	})
}

func (r reporter) fail() {
	r.store.UpdateAgent(r.projectID, r.agent, sessions.AgentPatch{Status: sessions.Ptr(sessions.AgentError)})
}

func (r reporter) logf(format string, args ...any) {
	r.store.AddLog(r.projectID, r.agent, fmt.Sprintf(format, args...))
}

func rampProgress(i, n int) int {
	if n <= 0 {
		return 100
	}
	return int(math.Round(10 + float64(i)/float64(n)*85))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
