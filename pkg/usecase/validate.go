package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

// Probe checks policy consistency and connectivity to both sides
// without mutating anything. It exercises the same calls the fetch
// phase would make, so a passing probe means a run can start.
func (uc *UseCases) Probe(ctx context.Context) error {
	logger := logging.From(ctx)

	if err := uc.policy.Validate(); err != nil {
		return goerr.Wrap(err, "invalid reconciliation policy")
	}
	logger.Info("Policy validated",
		"provisioning", uc.policy.Provisioning,
		"diff_cache", uc.policy.DiffCache,
		"mapped_groups", len(uc.policy.GroupMapping))

	if uc.target == nil {
		return ErrNoTarget
	}
	if err := uc.target.Validate(ctx); err != nil {
		return goerr.Wrap(err, "target system probe failed")
	}
	groups, err := uc.target.ListGroups(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list target groups")
	}
	logger.Info("Target system reachable", "groups", len(groups))

	if uc.connector == nil {
		return ErrNoConnector
	}
	dirGroups, err := uc.connector.FetchGroups(ctx)
	if err != nil {
		return goerr.Wrap(err, "directory probe failed",
			goerr.V("connector", uc.connector.Kind()))
	}
	logger.Info("Directory reachable",
		"connector", uc.connector.Kind(), "groups", len(dirGroups))

	return nil
}
