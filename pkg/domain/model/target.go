package model

import (
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

// TargetUser is a user account as the target system reports it. The
// engine never caches these beyond a single run.
type TargetUser struct {
	ID        types.TargetUserID
	Email     string
	FirstName string
	LastName  string
	Status    types.UserStatus
	GroupID   types.GroupID
	Roles     []types.Role
}

// EmailKey returns the case-folded join key for this target user
func (u *TargetUser) EmailKey() string {
	return NormalizeEmail(u.Email)
}

// IsActive reports whether the account is currently active
func (u *TargetUser) IsActive() bool {
	return u.Status == types.UserStatusActive
}

// UserPayload is the mutation body sent to the target system for
// create and update calls. Optional fields are omitted when empty so
// email-verification provisioning stays minimal.
type UserPayload struct {
	Email     string        `json:"email"`
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	GroupID   types.GroupID `json:"groupId,omitempty"`
	Roles     []types.Role  `json:"roles,omitempty"`
	Company   string        `json:"company,omitempty"`
	Title     string        `json:"title,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Password  string        `json:"password,omitempty" masq:"secret"`
}
