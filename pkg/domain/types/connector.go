package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// ConnectorKind identifies a directory connector implementation.
// It also keys the persisted snapshot, so renaming a kind invalidates
// the prior baseline for that connector.
type ConnectorKind string

const (
	ConnectorLDAP   ConnectorKind = "ldap"
	ConnectorEntra  ConnectorKind = "entra"
	ConnectorGoogle ConnectorKind = "google"
)

// Validate checks if the ConnectorKind is a known value
func (k ConnectorKind) Validate() error {
	switch k {
	case ConnectorLDAP, ConnectorEntra, ConnectorGoogle:
		return nil
	}
	return goerr.New("unknown connector kind", goerr.V("kind", k))
}

// String returns the string representation of ConnectorKind
func (k ConnectorKind) String() string {
	return string(k)
}
