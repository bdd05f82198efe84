package usecase

import (
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

// resolveRoles derives the target-system role set for a user from its
// marker group memberships, evaluated against the single group chosen
// for placement this run.
//
// The account-admin marker grants ACCOUNT_ADMIN wherever the user is
// placed. The group-admin marker grants GROUP_ADMIN for the placement
// group. Markers for groups the user is not being placed into are
// ignored: the target system binds roles to a single group assignment,
// so a role for another group has nowhere to attach this run.
func resolveRoles(u *model.User, policy *model.Policy) []types.Role {
	accountAdmin := u.HasGroup(policy.MarkerAccountAdmin)
	groupAdmin := u.HasGroup(policy.MarkerGroupAdmin)

	switch {
	case accountAdmin && groupAdmin:
		return []types.Role{types.RoleAccountAdmin, types.RoleGroupAdmin}
	case accountAdmin:
		return []types.Role{types.RoleAccountAdmin}
	case groupAdmin:
		return []types.Role{types.RoleGroupAdmin}
	default:
		return []types.Role{types.RoleNormalUser}
	}
}

// choosePlacement picks the placement group for a user: the first of
// the user's groups, in sorted name order, that exists in the target's
// group table. The single-group-wins rule is deliberate; the target
// system does not support multi-group membership.
func choosePlacement(u *model.User, table model.GroupTable) (string, types.GroupID, bool) {
	for _, name := range u.SortedGroups() {
		if id, ok := table.Lookup(name); ok {
			return name, id, true
		}
	}
	return "", "", false
}

// planActions decides the ordered action list for one directory user.
// A provision (when the account is absent and provisioning is enabled)
// always precedes the group placement. At most one UpdateGroup action
// is produced per user per run.
func planActions(u *model.User, existing *model.TargetUser, table model.GroupTable, policy *model.Policy) []model.SyncAction {
	var actions []model.SyncAction

	if existing == nil {
		if policy.Provisioning == model.ProvisionDisabled {
			// No account and no way to create one; placement has no subject.
			return nil
		}
		actions = append(actions, model.SyncAction{
			Kind:  model.ActionProvision,
			Email: u.Email,
		})
	}

	if name, _, ok := choosePlacement(u, table); ok {
		actions = append(actions, model.SyncAction{
			Kind:  model.ActionUpdateGroup,
			Email: u.Email,
			Group: name,
			Roles: resolveRoles(u, policy),
		})
	}

	return actions
}
