package model

import (
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

// SyncActionKind tags the variant of a SyncAction
type SyncActionKind string

const (
	ActionProvision   SyncActionKind = "provision"
	ActionUpdateGroup SyncActionKind = "update_group"
	ActionDeactivate  SyncActionKind = "deactivate"
)

// SyncAction is one decided operation against the target system.
// At most one UpdateGroup action is produced per user per run: the
// first group in sorted order is authoritative for placement.
type SyncAction struct {
	Kind  SyncActionKind
	Email string

	// UpdateGroup payload
	Group string
	Roles []types.Role
}
