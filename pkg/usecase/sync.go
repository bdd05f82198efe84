package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
	"github.com/secmon-lab/idsync/pkg/utils/pool"
)

// SyncUseCase is the reconciliation controller. One Run drives the
// state machine Fetch → Diff → EnsureGroups → SyncUsers →
// ComputeDeactivations → DeactivateUsers → Persist → Done. Only the
// fetch phase is fatal; everything after is per-item recoverable.
type SyncUseCase struct {
	uc *UseCases
}

func newSyncUseCase(uc *UseCases) *SyncUseCase {
	return &SyncUseCase{uc: uc}
}

// fetchState holds everything obtained during the fetch phase. The
// group table becomes read-only once user dispatch starts; any group
// creation happens strictly before that.
type fetchState struct {
	groups        []model.Group
	users         []model.User
	table         model.GroupTable
	targetUsers   []model.TargetUser
	targetByEmail map[string]*model.TargetUser
}

// Run executes one reconciliation run and returns its report. A nil
// error does not imply zero failures: per-item failures are carried in
// the report. A non-nil error means the run aborted at the fetch phase
// with no mutation and the prior snapshot untouched.
func (s *SyncUseCase) Run(ctx context.Context) (*model.RunReport, error) {
	if s.uc.connector == nil {
		return nil, ErrNoConnector
	}
	if s.uc.target == nil {
		return nil, ErrNoTarget
	}

	report := &model.RunReport{
		ID:        types.NewRunID(),
		Connector: s.uc.connector.Kind(),
		StartedAt: time.Now(),
	}

	logger := logging.From(ctx).With("run_id", report.ID, "connector", report.Connector)
	ctx = logging.With(ctx, logger)
	logger.Info("Starting reconciliation run")

	// Fetch
	st, err := s.fetch(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "fetch phase failed, aborting run before any mutation")
	}
	report.DirectoryUsers = len(st.users)
	report.DirectoryGroups = len(st.groups)
	s.uc.progress.Done("Fetch")

	// Diff
	logger.Info("Phase transition", "phase", types.PhaseDiff)
	var prior *model.Snapshot
	if s.uc.policy.DiffCache {
		prior, err = s.uc.snapshots.Get(ctx, report.Connector)
		if err != nil {
			// Nothing has been mutated yet, so a broken snapshot store is
			// still a clean abort.
			return nil, goerr.Wrap(err, "failed to read prior snapshot")
		}
	}
	candidates, skipped := filterChanged(st.users, prior)
	report.Unchanged = skipped
	missing := missingGroups(s.groupsToEnsure(st), st.table)
	logger.Info("Change filter applied",
		"candidates", len(candidates),
		"unchanged", skipped,
		"groups_missing", len(missing))
	s.uc.progress.Done("Diff")

	// EnsureGroups
	logger.Info("Phase transition", "phase", types.PhaseEnsureGroups)
	s.ensureGroups(ctx, st, missing, report)

	// SyncUsers
	logger.Info("Phase transition", "phase", types.PhaseSyncUsers)
	s.syncUsers(ctx, st, candidates, report)
	s.uc.progress.Done("Syncing Users")

	// ComputeDeactivations + DeactivateUsers
	s.deactivate(ctx, st, report)
	s.uc.progress.Done("Deactivation")

	// Persist
	logger.Info("Phase transition", "phase", types.PhasePersist)
	snapshot := &model.Snapshot{
		Connector: report.Connector,
		TakenAt:   time.Now(),
		Users:     st.users,
	}
	if err := s.uc.snapshots.Put(ctx, snapshot); err != nil {
		// Not fatal: the next run reprocesses a superset of users, which
		// is idempotent, just more expensive.
		logger.Error("Failed to persist snapshot", "error", err.Error())
		report.Failures = append(report.Failures, model.ItemFailure{
			Phase:  types.PhasePersist,
			Key:    report.Connector.String(),
			Reason: err.Error(),
		})
	}

	report.FinishedAt = time.Now()
	logger.Info("Reconciliation run finished",
		"phase", types.PhaseDone,
		"duration", report.Duration().String(),
		"provisioned", report.UsersProvisioned,
		"updated", report.UsersUpdated,
		"deactivated", report.UsersDeactivated,
		"groups_created", report.GroupsCreated,
		"unchanged", report.Unchanged,
		"failures", len(report.Failures))

	if s.uc.notifier != nil {
		if err := s.uc.notifier.NotifyRunReport(ctx, report); err != nil {
			logger.Warn("Failed to deliver run report notification", "error", err.Error())
		}
	}

	return report, nil
}

// fetch obtains the normalized directory view and the target system's
// current user/group listing. Any failure here is fatal to the run.
func (s *SyncUseCase) fetch(ctx context.Context) (*fetchState, error) {
	logger := logging.From(ctx)
	logger.Info("Phase transition", "phase", types.PhaseFetch)

	if err := s.uc.target.Validate(ctx); err != nil {
		return nil, goerr.Wrap(err, "target system validation failed")
	}

	rawGroups, err := s.uc.connector.FetchGroups(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch directory groups")
	}
	rawUsers, err := s.uc.connector.FetchUsers(ctx, rawGroups)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch directory users")
	}

	table, err := s.uc.target.ListGroups(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list target groups")
	}
	targetUsers, err := s.uc.target.ListUsers(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list target users")
	}

	st := &fetchState{
		groups:        s.uc.norm.Groups(rawGroups),
		users:         s.uc.norm.Users(rawUsers),
		table:         table,
		targetUsers:   targetUsers,
		targetByEmail: make(map[string]*model.TargetUser, len(targetUsers)),
	}
	for i := range targetUsers {
		st.targetByEmail[targetUsers[i].EmailKey()] = &targetUsers[i]
	}

	logger.Info("Fetched current state",
		"directory_groups", len(st.groups),
		"directory_users", len(st.users),
		"target_groups", len(st.table),
		"target_users", len(st.targetUsers))

	return st, nil
}

// groupsToEnsure is the directory group list plus the policy's default
// group, which must exist before the deactivation phase can strip
// privileges into it.
func (s *SyncUseCase) groupsToEnsure(st *fetchState) []model.Group {
	groups := st.groups
	for _, g := range groups {
		if g.Name == s.uc.policy.DefaultGroup {
			return groups
		}
	}
	return append(append([]model.Group{}, groups...), model.Group{Name: s.uc.policy.DefaultGroup})
}

// ensureGroups creates every missing group in the target system. An
// "already exists" outcome counts as success; any other failure is
// recorded per group and does not block the remaining creations. The
// group table is complete before this returns, never mutated after.
func (s *SyncUseCase) ensureGroups(ctx context.Context, st *fetchState, missing []model.Group, report *model.RunReport) {
	logger := logging.From(ctx)
	if len(missing) == 0 {
		s.uc.progress.Done("Creating Groups")
		return
	}

	relist := false
	for i, g := range missing {
		s.uc.progress.Update("Creating Groups", i, len(missing))

		id, err := s.uc.target.CreateGroup(ctx, g.Name)
		switch {
		case err == nil:
			st.table[g.Name] = id
			report.GroupsCreated++
			logger.Info("Group created", "group", g.Name, "group_id", id)

		case errors.Is(err, interfaces.ErrGroupExists):
			// Idempotent: the name is already present, but its remote ID is
			// unknown until we re-list.
			relist = true
			logger.Info("Group already exists in target system", "group", g.Name)

		default:
			logger.Error("Failed to create group", "group", g.Name, "error", err.Error())
			report.Failures = append(report.Failures, model.ItemFailure{
				Phase:  types.PhaseEnsureGroups,
				Key:    g.Name,
				Reason: err.Error(),
			})
		}
	}
	s.uc.progress.Done("Creating Groups")

	if relist {
		table, err := s.uc.target.ListGroups(ctx)
		if err != nil {
			logger.Warn("Failed to refresh group table after creation", "error", err.Error())
			return
		}
		st.table = table
	}
}

// syncUsers dispatches per-user provisioning and group placement with
// bounded concurrency. The group table is read-only from here on.
func (s *SyncUseCase) syncUsers(ctx context.Context, st *fetchState, candidates []model.User, report *model.RunReport) {
	if len(candidates) == 0 {
		return
	}

	var provisioned, updated atomic.Int64

	results := pool.Run(ctx, candidates, s.uc.poolWidth, func(ctx context.Context, u model.User) error {
		didProvision, didUpdate, err := s.syncUser(ctx, st, &u)
		if didProvision {
			provisioned.Add(1)
		}
		if didUpdate {
			updated.Add(1)
		}
		return err
	})

	report.UsersProvisioned = int(provisioned.Load())
	report.UsersUpdated = int(updated.Load())
	for _, f := range results.Failures {
		logging.From(ctx).Error("Failed to sync user",
			"email", f.Item.Email, "error", f.Err.Error())
		report.Failures = append(report.Failures, model.ItemFailure{
			Phase:  types.PhaseSyncUsers,
			Key:    f.Item.EmailKey(),
			Reason: f.Err.Error(),
		})
	}
}

// syncUser plans one user's actions and applies them in order:
// provision when absent, then reactivate if needed and push the user
// into its placement group with resolved roles.
func (s *SyncUseCase) syncUser(ctx context.Context, st *fetchState, u *model.User) (didProvision, didUpdate bool, err error) {
	logger := logging.From(ctx)
	policy := s.uc.policy

	existing := st.targetByEmail[u.EmailKey()]
	actions := planActions(u, existing, st.table, policy)
	if len(actions) == 0 {
		if existing == nil {
			logger.Info("Auto provisioning disabled, skipping account creation", "email", u.Email)
		} else {
			// User carries no group known to the target; nothing to place.
			logger.Debug("No placement group resolved", "email", u.Email, "groups", u.Groups)
		}
		return false, false, nil
	}

	var id types.TargetUserID
	status := types.UserStatusActive
	if existing != nil {
		id = existing.ID
		status = existing.Status
	}

	for _, act := range actions {
		switch act.Kind {
		case model.ActionProvision:
			payload, perr := provisionPayload(u, policy)
			if perr != nil {
				return didProvision, didUpdate, perr
			}
			id, err = s.uc.target.CreateUser(ctx, payload)
			if err != nil {
				return didProvision, didUpdate, goerr.Wrap(err, "failed to provision user", goerr.V("email", u.Email))
			}
			didProvision = true
			logger.Info("Account provisioned", "email", u.Email, "mode", policy.Provisioning)

		case model.ActionUpdateGroup:
			groupID, ok := st.table.Lookup(act.Group)
			if !ok {
				return didProvision, didUpdate, goerr.New("placement group missing in target system",
					goerr.V("email", u.Email), goerr.V("group", act.Group))
			}

			// The target system rejects updates on inactive accounts, so
			// flip the status back before the group push.
			if status == types.UserStatusInactive {
				if err := s.uc.target.SetUserStatus(ctx, id, types.UserStatusActive); err != nil {
					return didProvision, didUpdate, goerr.Wrap(err, "failed to reactivate user", goerr.V("email", u.Email))
				}
				status = types.UserStatusActive
				logger.Info("Account reactivated", "email", u.Email)
			}

			payload := &model.UserPayload{
				Email:     u.Email,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				GroupID:   groupID,
				Roles:     act.Roles,
			}
			if err := s.uc.target.UpdateUser(ctx, id, payload); err != nil {
				return didProvision, didUpdate, goerr.Wrap(err, "failed to update user",
					goerr.V("email", u.Email), goerr.V("group", act.Group))
			}
			didUpdate = true
			logger.Info("User placed into group",
				"email", u.Email, "group", act.Group, "roles", act.Roles)
		}
	}

	return didProvision, didUpdate, nil
}

// provisionPayload builds the creation payload per the provisioning
// policy, or nil when provisioning is disabled. The two active modes
// are mutually exclusive by policy validation.
func provisionPayload(u *model.User, policy *model.Policy) (*model.UserPayload, error) {
	switch policy.Provisioning {
	case model.ProvisionDisabled:
		return nil, nil

	case model.ProvisionEmailVerification:
		return &model.UserPayload{
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		}, nil

	case model.ProvisionPasswordSuppressed:
		return &model.UserPayload{
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Company:   u.Company,
			Title:     u.Title,
			Phone:     u.Phone,
			Password:  policy.ProvisioningPassword,
		}, nil

	default:
		return nil, goerr.New("unknown provisioning mode", goerr.V("mode", policy.Provisioning))
	}
}

// deactivate computes the deactivation set and applies it: every
// currently active target user whose email is absent from the
// directory (excluding the service account) is stripped of privileges
// and flipped to INACTIVE.
func (s *SyncUseCase) deactivate(ctx context.Context, st *fetchState, report *model.RunReport) {
	logger := logging.From(ctx)
	logger.Info("Phase transition", "phase", types.PhaseComputeDeactivations)

	// Re-list after the update phase so freshly provisioned accounts are
	// visible to the scan.
	current, err := s.uc.target.ListUsers(ctx)
	if err != nil {
		logger.Error("Failed to list target users for deactivation scan", "error", err.Error())
		report.Failures = append(report.Failures, model.ItemFailure{
			Phase:  types.PhaseComputeDeactivations,
			Key:    report.Connector.String(),
			Reason: err.Error(),
		})
		return
	}

	serviceKey := model.NormalizeEmail(s.uc.policy.ServiceAccountEmail)
	scan := make([]model.TargetUser, 0, len(current))
	for _, tu := range current {
		if serviceKey != "" && tu.EmailKey() == serviceKey {
			continue
		}
		scan = append(scan, tu)
	}

	// Gather the currently active accounts. Status comes from a per-user
	// lookup so the scan reflects this run's own reactivations.
	active, results := pool.Collect(ctx, scan, s.uc.poolWidth, func(ctx context.Context, tu model.TargetUser) (model.TargetUser, bool, error) {
		fresh, err := s.uc.target.GetUser(ctx, tu.ID)
		if err != nil {
			return model.TargetUser{}, false, err
		}
		if !fresh.IsActive() {
			return model.TargetUser{}, false, nil
		}
		out := *fresh
		out.ID = tu.ID
		return out, true, nil
	})
	for _, f := range results.Failures {
		logger.Error("Failed to check target user status",
			"email", f.Item.Email, "error", f.Err.Error())
		report.Failures = append(report.Failures, model.ItemFailure{
			Phase:  types.PhaseComputeDeactivations,
			Key:    f.Item.EmailKey(),
			Reason: f.Err.Error(),
		})
	}

	dirEmails := make(map[string]struct{}, len(st.users))
	for i := range st.users {
		dirEmails[st.users[i].EmailKey()] = struct{}{}
	}

	activeByEmail := make(map[string]model.TargetUser, len(active))
	var toDeactivate []model.SyncAction
	for _, tu := range active {
		if _, ok := dirEmails[tu.EmailKey()]; !ok {
			activeByEmail[tu.EmailKey()] = tu
			toDeactivate = append(toDeactivate, model.SyncAction{
				Kind:  model.ActionDeactivate,
				Email: tu.Email,
			})
		}
	}

	logger.Info("Deactivation set computed",
		"phase", types.PhaseDeactivateUsers,
		"active", len(active),
		"to_deactivate", len(toDeactivate))
	if len(toDeactivate) == 0 {
		return
	}

	var deactivated atomic.Int64

	runResults := pool.Run(ctx, toDeactivate, s.uc.poolWidth, func(ctx context.Context, act model.SyncAction) error {
		tu := activeByEmail[model.NormalizeEmail(act.Email)]
		if err := s.deactivateUser(ctx, st, &tu); err != nil {
			return err
		}
		deactivated.Add(1)
		return nil
	})

	report.UsersDeactivated = int(deactivated.Load())
	for _, f := range runResults.Failures {
		logger.Error("Failed to deactivate user",
			"email", f.Item.Email, "error", f.Err.Error())
		report.Failures = append(report.Failures, model.ItemFailure{
			Phase:  types.PhaseDeactivateUsers,
			Key:    model.NormalizeEmail(f.Item.Email),
			Reason: f.Err.Error(),
		})
	}
}

// deactivateUser strips group and role privileges before flipping the
// status: the target system rejects role changes on inactive accounts,
// so the order is load-bearing.
func (s *SyncUseCase) deactivateUser(ctx context.Context, st *fetchState, tu *model.TargetUser) error {
	logger := logging.From(ctx)

	defaultGroupID, ok := st.table.Lookup(s.uc.policy.DefaultGroup)
	if !ok {
		return goerr.New("default group missing in target system",
			goerr.V("group", s.uc.policy.DefaultGroup))
	}

	strip := &model.UserPayload{
		Email:     tu.Email,
		FirstName: tu.FirstName,
		LastName:  tu.LastName,
		GroupID:   defaultGroupID,
		Roles:     []types.Role{types.RoleNormalUser},
	}
	if err := s.uc.target.UpdateUser(ctx, tu.ID, strip); err != nil {
		return goerr.Wrap(err, "failed to strip privileges", goerr.V("email", tu.Email))
	}
	logger.Info("Privileges removed", "email", tu.Email)

	if err := s.uc.target.SetUserStatus(ctx, tu.ID, types.UserStatusInactive); err != nil {
		return goerr.Wrap(err, "failed to deactivate user", goerr.V("email", tu.Email))
	}
	logger.Info("Account deactivated", "email", tu.Email)

	return nil
}
