package model

import (
	"time"

	"github.com/secmon-lab/idsync/pkg/domain/types"
)

// Snapshot is the persisted normalized user set from the most recent
// successful run, keyed by connector kind. It is read once at the
// start of the diff phase and overwritten atomically after a run
// completes its deactivation phase.
type Snapshot struct {
	Connector types.ConnectorKind `json:"connector"`
	TakenAt   time.Time           `json:"takenAt"`
	Users     []User              `json:"users"`
}

// Find returns the snapshot record matching the given email key, or
// nil when the user was not present in the prior run.
func (s *Snapshot) Find(emailKey string) *User {
	if s == nil {
		return nil
	}
	for i := range s.Users {
		if s.Users[i].EmailKey() == emailKey {
			return &s.Users[i]
		}
	}
	return nil
}
