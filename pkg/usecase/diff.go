package usecase

import (
	"github.com/secmon-lab/idsync/pkg/domain/model"
)

// filterChanged returns the subset of current users whose full
// normalized record differs from the prior snapshot, plus the count of
// unchanged records skipped. A nil prior snapshot means first run:
// every user is treated as changed. Equality is structural.
//
// This is an optimization, not a correctness requirement: returning
// all of current is always a valid (idempotent) answer.
func filterChanged(current []model.User, prior *model.Snapshot) ([]model.User, int) {
	if prior == nil {
		return current, 0
	}

	var changed []model.User
	skipped := 0
	for i := range current {
		if before := prior.Find(current[i].EmailKey()); before != nil && before.Equal(&current[i]) {
			skipped++
			continue
		}
		changed = append(changed, current[i])
	}
	return changed, skipped
}

// missingGroups returns the canonical groups absent from the target's
// group directory, preserving input order.
func missingGroups(groups []model.Group, table model.GroupTable) []model.Group {
	var missing []model.Group
	for _, g := range groups {
		if _, ok := table.Lookup(g.Name); !ok {
			missing = append(missing, g)
		}
	}
	return missing
}
