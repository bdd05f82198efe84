package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/idsync/pkg/domain/model"
)

// PolicyConfig represents the reconciliation policy file
type PolicyConfig struct {
	DefaultGroup        string         `toml:"default_group"`
	ServiceAccountEmail string         `toml:"service_account_email"`
	DiffCache           *bool          `toml:"diff_cache"`
	Provisioning        Provisioning   `toml:"provisioning"`
	Markers             Markers        `toml:"markers"`
	Groups              []GroupMapping `toml:"group"`
}

// Provisioning represents the account creation settings
type Provisioning struct {
	Mode     string `toml:"mode"`
	Password string `toml:"password"`
}

// Markers represents the reserved marker group names
type Markers struct {
	AccountAdmin string `toml:"account_admin"`
	GroupAdmin   string `toml:"group_admin"`
}

// GroupMapping maps a directory group name to a target group name
type GroupMapping struct {
	Directory string `toml:"directory"`
	Target    string `toml:"target"`
}

// Validate checks if the GroupMapping is valid
func (g *GroupMapping) Validate() error {
	if g.Directory == "" {
		return goerr.New("group mapping directory name is required")
	}
	if g.Target == "" {
		return goerr.New("group mapping target name is required", goerr.V("directory", g.Directory))
	}
	return nil
}

// Validate checks if the PolicyConfig is valid
func (p *PolicyConfig) Validate() error {
	seen := make(map[string]bool)
	for _, g := range p.Groups {
		if err := g.Validate(); err != nil {
			return goerr.Wrap(err, "invalid group mapping")
		}
		if seen[g.Directory] {
			return goerr.New("duplicate group mapping", goerr.V("directory", g.Directory))
		}
		seen[g.Directory] = true
	}
	return nil
}

// LoadPolicyConfig loads the reconciliation policy from a TOML file
func LoadPolicyConfig(path string) (*PolicyConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", path))
	}

	var config PolicyConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML policy", goerr.V("path", path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "policy validation failed", goerr.V("path", path))
	}

	return &config, nil
}

// ToPolicy converts the file representation to the domain policy,
// filling unset fields with defaults.
func (p *PolicyConfig) ToPolicy() (*model.Policy, error) {
	policy := model.DefaultPolicy()

	if len(p.Groups) > 0 {
		policy.GroupMapping = make(map[string]string, len(p.Groups))
		for _, g := range p.Groups {
			policy.GroupMapping[g.Directory] = g.Target
		}
	}
	if p.Markers.AccountAdmin != "" {
		policy.MarkerAccountAdmin = p.Markers.AccountAdmin
	}
	if p.Markers.GroupAdmin != "" {
		policy.MarkerGroupAdmin = p.Markers.GroupAdmin
	}
	if p.DefaultGroup != "" {
		policy.DefaultGroup = p.DefaultGroup
	}
	policy.ServiceAccountEmail = p.ServiceAccountEmail
	if p.Provisioning.Mode != "" {
		policy.Provisioning = model.ProvisioningMode(p.Provisioning.Mode)
	}
	policy.ProvisioningPassword = p.Provisioning.Password
	if p.DiffCache != nil {
		policy.DiffCache = *p.DiffCache
	}

	if err := policy.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid policy")
	}
	return policy, nil
}

// Policy holds the CLI flag pointing at the policy file
type Policy struct {
	path string
}

// Flags returns CLI flags for policy configuration
func (p *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Path to the reconciliation policy TOML file",
			Category:    "Policy",
			Sources:     cli.EnvVars("IDSYNC_POLICY"),
			Destination: &p.path,
		},
	}
}

// Configure loads and converts the policy file; an unset path yields
// the default policy.
func (p *Policy) Configure() (*model.Policy, error) {
	if p.path == "" {
		return model.DefaultPolicy(), nil
	}

	cfg, err := LoadPolicyConfig(p.path)
	if err != nil {
		return nil, err
	}
	return cfg.ToPolicy()
}
