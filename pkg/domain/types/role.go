package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// Role represents a privilege level in the target system
type Role string

const (
	RoleNormalUser   Role = "NORMAL_USER"
	RoleGroupAdmin   Role = "GROUP_ADMIN"
	RoleAccountAdmin Role = "ACCOUNT_ADMIN"
)

// Validate checks if the Role is a known value
func (r Role) Validate() error {
	switch r {
	case RoleNormalUser, RoleGroupAdmin, RoleAccountAdmin:
		return nil
	}
	return goerr.New("unknown role", goerr.V("role", r))
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}
