package model

import (
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

// Group is a placement group in canonical form. RemoteID is empty until
// the group exists in the target system and is immutable once assigned.
type Group struct {
	Name     string        `json:"name"`
	RemoteID types.GroupID `json:"remoteId,omitempty"`
}

// GroupTable maps group names to their remote identities. It is built
// before user dispatch and read-only afterwards, so workers may consult
// it concurrently without locking.
type GroupTable map[string]types.GroupID

// Lookup returns the remote ID for a group name
func (t GroupTable) Lookup(name string) (types.GroupID, bool) {
	id, ok := t[name]
	return id, ok
}
