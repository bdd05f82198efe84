package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// UserStatus represents the activation state of a target-system account
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

// Validate checks if the UserStatus is a known value
func (s UserStatus) Validate() error {
	switch s {
	case UserStatusActive, UserStatusInactive:
		return nil
	}
	return goerr.New("unknown user status", goerr.V("status", s))
}

// String returns the string representation of UserStatus
func (s UserStatus) String() string {
	return string(s)
}
