package model

import (
	"github.com/m-mizutani/goerr/v2"
)

// ProvisioningMode selects how absent target accounts are created.
// The two active modes are mutually exclusive by construction.
type ProvisioningMode string

const (
	// ProvisionEmailVerification creates the account and lets the target
	// system send an activation mail; the user activates manually.
	ProvisionEmailVerification ProvisioningMode = "email-verification"

	// ProvisionPasswordSuppressed creates the account pre-activated with
	// a configured password, suppressing the activation mail.
	ProvisionPasswordSuppressed ProvisioningMode = "password-suppressed"

	// ProvisionDisabled skips account creation entirely; existing
	// accounts are still updated and placed.
	ProvisionDisabled ProvisioningMode = "disabled"
)

// Validate checks if the ProvisioningMode is a known value
func (m ProvisioningMode) Validate() error {
	switch m {
	case ProvisionEmailVerification, ProvisionPasswordSuppressed, ProvisionDisabled:
		return nil
	}
	return goerr.New("unknown provisioning mode", goerr.V("mode", m))
}

// Default marker group names. Markers encode privilege, not placement,
// and are never remapped by the normalizer.
const (
	DefaultMarkerAccountAdmin = "IDSYNC_ACCOUNT_ADMIN"
	DefaultMarkerGroupAdmin   = "IDSYNC_GROUP_ADMIN"
	DefaultGroupName          = "Default Group"
)

// Policy is the reconciliation policy: group remapping, marker names,
// provisioning behavior and deactivation defaults. It is loaded from
// the policy file by the CLI layer and treated as read-only during a
// run.
type Policy struct {
	GroupMapping map[string]string

	MarkerAccountAdmin string
	MarkerGroupAdmin   string

	// DefaultGroup receives deactivated users when their privileges are
	// stripped ahead of the status flip.
	DefaultGroup string

	// ServiceAccountEmail is the account's own identity; it is excluded
	// from the deactivation scan.
	ServiceAccountEmail string

	Provisioning         ProvisioningMode
	ProvisioningPassword string `masq:"secret"`

	// DiffCache toggles the change filter. Disabling it only costs
	// extra outbound calls; correctness does not depend on it.
	DiffCache bool
}

// DefaultPolicy returns a Policy with the stock marker and group names
// and the diff cache enabled.
func DefaultPolicy() *Policy {
	return &Policy{
		MarkerAccountAdmin: DefaultMarkerAccountAdmin,
		MarkerGroupAdmin:   DefaultMarkerGroupAdmin,
		DefaultGroup:       DefaultGroupName,
		Provisioning:       ProvisionEmailVerification,
		DiffCache:          true,
	}
}

// Validate checks if the Policy is internally consistent
func (p *Policy) Validate() error {
	if p.MarkerAccountAdmin == "" || p.MarkerGroupAdmin == "" {
		return goerr.New("marker group names must not be empty")
	}
	if p.MarkerAccountAdmin == p.MarkerGroupAdmin {
		return goerr.New("marker group names must differ",
			goerr.V("marker", p.MarkerAccountAdmin))
	}
	if p.DefaultGroup == "" {
		return goerr.New("default group name must not be empty")
	}
	if err := p.Provisioning.Validate(); err != nil {
		return err
	}
	if p.Provisioning == ProvisionPasswordSuppressed && p.ProvisioningPassword == "" {
		return goerr.New("password-suppressed provisioning requires a password")
	}
	for from, to := range p.GroupMapping {
		if to == "" {
			return goerr.New("group mapping target must not be empty", goerr.V("from", from))
		}
	}
	return nil
}

// Markers returns the reserved marker group names
func (p *Policy) Markers() []string {
	return []string{p.MarkerAccountAdmin, p.MarkerGroupAdmin}
}
