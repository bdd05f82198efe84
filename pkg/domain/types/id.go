package types

import (
	"github.com/google/uuid"
)

// GroupID is the remote identity of a group in the target system.
// It is assigned by the target on creation and never changes afterwards.
type GroupID string

// String returns the string representation of GroupID
func (g GroupID) String() string {
	return string(g)
}

// TargetUserID is the remote identity of a user account in the target system
type TargetUserID string

// String returns the string representation of TargetUserID
func (u TargetUserID) String() string {
	return string(u)
}

// RunID identifies a single reconciliation run
type RunID string

// NewRunID generates a new random RunID
func NewRunID() RunID {
	return RunID(uuid.New().String())
}

// String returns the string representation of RunID
func (r RunID) String() string {
	return string(r)
}
