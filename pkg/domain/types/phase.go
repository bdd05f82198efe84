package types

// RunPhase names one state of the reconciliation state machine.
// Transitions are strictly sequential; a phase is never skipped even
// when its input set is empty.
type RunPhase string

const (
	PhaseFetch                RunPhase = "fetch"
	PhaseDiff                 RunPhase = "diff"
	PhaseEnsureGroups         RunPhase = "ensure_groups"
	PhaseSyncUsers            RunPhase = "sync_users"
	PhaseComputeDeactivations RunPhase = "compute_deactivations"
	PhaseDeactivateUsers      RunPhase = "deactivate_users"
	PhasePersist              RunPhase = "persist"
	PhaseDone                 RunPhase = "done"
)

// String returns the string representation of RunPhase
func (p RunPhase) String() string {
	return string(p)
}
