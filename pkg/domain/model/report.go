package model

import (
	"time"

	"github.com/secmon-lab/idsync/pkg/domain/types"
)

// ItemFailure records one per-item or per-group failure. Failures are
// counted and carried in the run report; they never abort the run.
type ItemFailure struct {
	Phase  types.RunPhase `json:"phase"`
	Key    string         `json:"key"`    // email or group name
	Reason string         `json:"reason"` // remote reason, logged verbatim
}

// RunReport aggregates the outcome of a single reconciliation run
type RunReport struct {
	ID               types.RunID         `json:"id"`
	Connector        types.ConnectorKind `json:"connector"`
	StartedAt        time.Time           `json:"startedAt"`
	FinishedAt       time.Time           `json:"finishedAt"`
	DirectoryUsers   int                 `json:"directoryUsers"`
	DirectoryGroups  int                 `json:"directoryGroups"`
	Unchanged        int                 `json:"unchanged"` // skipped by the change filter
	GroupsCreated    int                 `json:"groupsCreated"`
	UsersProvisioned int                 `json:"usersProvisioned"`
	UsersUpdated     int                 `json:"usersUpdated"`
	UsersDeactivated int                 `json:"usersDeactivated"`
	Failures         []ItemFailure       `json:"failures,omitempty"`
}

// Duration returns the wall-clock duration of the run
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether any per-item failure was recorded
func (r *RunReport) Failed() bool {
	return len(r.Failures) > 0
}
