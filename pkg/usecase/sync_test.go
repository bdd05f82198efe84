package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
	"github.com/secmon-lab/idsync/pkg/repository/memory"
	"github.com/secmon-lab/idsync/pkg/usecase"
)

type fakeConnector struct {
	groups    []string
	users     []model.RawUser
	groupsErr error
	usersErr  error
}

func (c *fakeConnector) Kind() types.ConnectorKind {
	return types.ConnectorLDAP
}

func (c *fakeConnector) FetchGroups(ctx context.Context) ([]string, error) {
	return c.groups, c.groupsErr
}

func (c *fakeConnector) FetchUsers(ctx context.Context, groups []string) ([]model.RawUser, error) {
	return c.users, c.usersErr
}

type fakeTarget struct {
	mu      sync.Mutex
	nextID  int
	groups  model.GroupTable
	users   map[types.TargetUserID]*model.TargetUser
	byEmail map[string]types.TargetUserID

	validateErr    error
	updateErrs     map[string]error
	existsOnCreate map[string]types.GroupID

	createdGroups []string
	createdUsers  []string
}

var _ interfaces.TargetClient = &fakeTarget{}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		groups:         model.GroupTable{},
		users:          map[types.TargetUserID]*model.TargetUser{},
		byEmail:        map[string]types.TargetUserID{},
		updateErrs:     map[string]error{},
		existsOnCreate: map[string]types.GroupID{},
	}
}

func (t *fakeTarget) addGroup(name string) types.GroupID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := types.GroupID(fmt.Sprintf("g-%d", t.nextID))
	t.groups[name] = id
	return id
}

func (t *fakeTarget) addUser(email string, status types.UserStatus, groupID types.GroupID, roles ...types.Role) types.TargetUserID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := types.TargetUserID(fmt.Sprintf("u-%d", t.nextID))
	u := &model.TargetUser{
		ID:      id,
		Email:   email,
		Status:  status,
		GroupID: groupID,
		Roles:   roles,
	}
	t.users[id] = u
	t.byEmail[u.EmailKey()] = id
	return id
}

func (t *fakeTarget) userByEmail(email string) *model.TargetUser {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil
	}
	copied := *t.users[id]
	return &copied
}

func (t *fakeTarget) Validate(ctx context.Context) error {
	return t.validateErr
}

func (t *fakeTarget) ListGroups(ctx context.Context) (model.GroupTable, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	table := make(model.GroupTable, len(t.groups))
	for name, id := range t.groups {
		table[name] = id
	}
	return table, nil
}

func (t *fakeTarget) CreateGroup(ctx context.Context, name string) (types.GroupID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.existsOnCreate[name]; ok {
		t.groups[name] = id
		return "", interfaces.ErrGroupExists
	}
	if _, ok := t.groups[name]; ok {
		return "", interfaces.ErrGroupExists
	}

	t.nextID++
	id := types.GroupID(fmt.Sprintf("g-%d", t.nextID))
	t.groups[name] = id
	t.createdGroups = append(t.createdGroups, name)
	return id, nil
}

func (t *fakeTarget) ListUsers(ctx context.Context) ([]model.TargetUser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	users := make([]model.TargetUser, 0, len(t.users))
	for _, u := range t.users {
		users = append(users, *u)
	}
	return users, nil
}

func (t *fakeTarget) GetUser(ctx context.Context, id types.TargetUserID) (*model.TargetUser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.users[id]
	if !ok {
		return nil, interfaces.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (t *fakeTarget) CreateUser(ctx context.Context, payload *model.UserPayload) (types.TargetUserID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := types.TargetUserID(fmt.Sprintf("u-%d", t.nextID))
	u := &model.TargetUser{
		ID:        id,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Status:    types.UserStatusActive,
		GroupID:   payload.GroupID,
		Roles:     payload.Roles,
	}
	t.users[id] = u
	t.byEmail[u.EmailKey()] = id
	t.createdUsers = append(t.createdUsers, payload.Email)
	return id, nil
}

func (t *fakeTarget) UpdateUser(ctx context.Context, id types.TargetUserID, payload *model.UserPayload) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.users[id]
	if !ok {
		return interfaces.ErrUserNotFound
	}
	if err, ok := t.updateErrs[model.NormalizeEmail(payload.Email)]; ok {
		return err
	}
	u.FirstName = payload.FirstName
	u.LastName = payload.LastName
	u.GroupID = payload.GroupID
	u.Roles = payload.Roles
	return nil
}

func (t *fakeTarget) SetUserStatus(ctx context.Context, id types.TargetUserID, status types.UserStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.users[id]
	if !ok {
		return interfaces.ErrUserNotFound
	}
	u.Status = status
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	reports []*model.RunReport
}

func (n *fakeNotifier) NotifyRunReport(ctx context.Context, report *model.RunReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, report)
	return nil
}

func TestSyncRun_FirstRun(t *testing.T) {
	connector := &fakeConnector{
		groups: []string{"Engineering", "Sales"},
		users: []model.RawUser{
			{Email: "alice@example.com", FirstName: "Alice", Groups: []string{"Engineering"}},
			{Email: "bob@example.com", FirstName: "Bob", Groups: []string{"Sales"}},
		},
	}
	target := newFakeTarget()
	snapshots := memory.New()
	notifier := &fakeNotifier{}

	uc := usecase.New(connector, target, snapshots,
		usecase.WithNotifier(notifier),
		usecase.WithPoolWidth(4),
	)

	report, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	gt.Value(t, report.DirectoryUsers).Equal(2)
	gt.Value(t, report.GroupsCreated).Equal(3) // both groups plus the default group
	gt.Value(t, report.UsersProvisioned).Equal(2)
	gt.Value(t, report.UsersUpdated).Equal(2)
	gt.Value(t, report.UsersDeactivated).Equal(0)
	gt.Array(t, report.Failures).Length(0)

	alice := target.userByEmail("alice@example.com")
	gt.Value(t, alice).NotNil().Required()
	gt.Value(t, alice.GroupID).Equal(target.groups["Engineering"])
	gt.Array(t, alice.Roles).Equal([]types.Role{types.RoleNormalUser})
	gt.Value(t, alice.Status).Equal(types.UserStatusActive)

	snapshot, err := snapshots.Get(context.Background(), types.ConnectorLDAP)
	gt.NoError(t, err).Required()
	gt.Value(t, snapshot).NotNil().Required()
	gt.Array(t, snapshot.Users).Length(2)

	gt.Array(t, notifier.reports).Length(1)
}

func TestSyncRun_UnchangedUsersSkipped(t *testing.T) {
	connector := &fakeConnector{
		groups: []string{"Engineering"},
		users: []model.RawUser{
			{Email: "alice@example.com", FirstName: "Alice", Groups: []string{"Engineering"}},
		},
	}
	target := newFakeTarget()
	snapshots := memory.New()

	uc := usecase.New(connector, target, snapshots)

	_, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	second, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	gt.Value(t, second.Unchanged).Equal(1)
	gt.Value(t, second.UsersProvisioned).Equal(0)
	gt.Value(t, second.UsersUpdated).Equal(0)
}

func TestSyncRun_DiffCacheDisabled(t *testing.T) {
	connector := &fakeConnector{
		groups: []string{"Engineering"},
		users: []model.RawUser{
			{Email: "alice@example.com", Groups: []string{"Engineering"}},
		},
	}
	target := newFakeTarget()
	snapshots := memory.New()

	policy := model.DefaultPolicy()
	policy.DiffCache = false
	uc := usecase.New(connector, target, snapshots, usecase.WithPolicy(policy))

	_, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	second, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	// Without the change filter every user is reprocessed each run
	gt.Value(t, second.Unchanged).Equal(0)
	gt.Value(t, second.UsersUpdated).Equal(1)
}

func TestSyncRun_DeactivatesDeparted(t *testing.T) {
	connector := &fakeConnector{
		groups: []string{"Engineering"},
		users: []model.RawUser{
			{Email: "alice@example.com", Groups: []string{"Engineering"}},
		},
	}
	target := newFakeTarget()
	engID := target.addGroup("Engineering")
	defaultID := target.addGroup(model.DefaultGroupName)
	target.addUser("alice@example.com", types.UserStatusActive, engID)
	target.addUser("departed@example.com", types.UserStatusActive, engID, types.RoleGroupAdmin)

	uc := usecase.New(connector, target, memory.New())

	report, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	gt.Value(t, report.UsersDeactivated).Equal(1)

	departed := target.userByEmail("departed@example.com")
	gt.Value(t, departed).NotNil().Required()
	gt.Value(t, departed.Status).Equal(types.UserStatusInactive)
	gt.Value(t, departed.GroupID).Equal(defaultID)
	gt.Array(t, departed.Roles).Equal([]types.Role{types.RoleNormalUser})

	alice := target.userByEmail("alice@example.com")
	gt.Value(t, alice.Status).Equal(types.UserStatusActive)
}

func TestSyncRun_ServiceAccountExcluded(t *testing.T) {
	connector := &fakeConnector{
		groups: []string{"Engineering"},
		users:  []model.RawUser{},
	}
	target := newFakeTarget()
	engID := target.addGroup("Engineering")
	target.addGroup(model.DefaultGroupName)
	target.addUser("svc@example.com", types.UserStatusActive, engID, types.RoleAccountAdmin)

	policy := model.DefaultPolicy()
	policy.ServiceAccountEmail = "SVC@example.com"
	uc := usecase.New(connector, target, memory.New(), usecase.WithPolicy(policy))

	report, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	gt.Value(t, report.UsersDeactivated).Equal(0)
	svc := target.userByEmail("svc@example.com")
	gt.Value(t, svc.Status).Equal(types.UserStatusActive)
	gt.Array(t, svc.Roles).Equal([]types.Role{types.RoleAccountAdmin})
}

func TestSyncRun_MarkerGroupsGrantRoles(t *testing.T) {
	policy := model.DefaultPolicy()
	connector := &fakeConnector{
		groups: []string{"Engineering", policy.MarkerAccountAdmin},
		users: []model.RawUser{
			{Email: "admin@example.com", Groups: []string{"Engineering", policy.MarkerAccountAdmin}},
		},
	}
	target := newFakeTarget()

	uc := usecase.New(connector, target, memory.New(), usecase.WithPolicy(policy))

	_, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	// The marker is privilege, not placement: no such target group exists
	_, ok := target.groups[policy.MarkerAccountAdmin]
	gt.Bool(t, ok).False()

	admin := target.userByEmail("admin@example.com")
	gt.Value(t, admin).NotNil().Required()
	gt.Value(t, admin.GroupID).Equal(target.groups["Engineering"])
	gt.Array(t, admin.Roles).Equal([]types.Role{types.RoleAccountAdmin})
}

func TestSyncRun_ReactivatesBeforeUpdate(t *testing.T) {
	connector := &fakeConnector{
		groups: []string{"Engineering"},
		users: []model.RawUser{
			{Email: "alice@example.com", FirstName: "Alice", Groups: []string{"Engineering"}},
		},
	}
	target := newFakeTarget()
	engID := target.addGroup("Engineering")
	target.addUser("alice@example.com", types.UserStatusInactive, engID)

	uc := usecase.New(connector, target, memory.New())

	report, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	gt.Value(t, report.UsersUpdated).Equal(1)
	alice := target.userByEmail("alice@example.com")
	gt.Value(t, alice.Status).Equal(types.UserStatusActive)
	gt.Value(t, alice.FirstName).Equal("Alice")
}

func TestSyncRun_FetchFailureAborts(t *testing.T) {
	connector := &fakeConnector{
		groupsErr: fmt.Errorf("directory unreachable"),
	}
	target := newFakeTarget()
	snapshots := memory.New()

	uc := usecase.New(connector, target, snapshots)

	_, err := uc.Sync.Run(context.Background())
	gt.Error(t, err)

	// No mutation, no snapshot
	gt.Array(t, target.createdGroups).Length(0)
	gt.Array(t, target.createdUsers).Length(0)
	snapshot, err := snapshots.Get(context.Background(), types.ConnectorLDAP)
	gt.NoError(t, err)
	gt.Value(t, snapshot).Nil()
}

func TestSyncRun_ItemFailureDoesNotAbort(t *testing.T) {
	connector := &fakeConnector{
		groups: []string{"Engineering"},
		users: []model.RawUser{
			{Email: "alice@example.com", Groups: []string{"Engineering"}},
			{Email: "bob@example.com", Groups: []string{"Engineering"}},
		},
	}
	target := newFakeTarget()
	engID := target.addGroup("Engineering")
	target.addGroup(model.DefaultGroupName)
	target.addUser("alice@example.com", types.UserStatusActive, engID)
	target.addUser("bob@example.com", types.UserStatusActive, engID)
	target.updateErrs["alice@example.com"] = fmt.Errorf("remote rejected")

	uc := usecase.New(connector, target, memory.New())

	report, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	gt.Array(t, report.Failures).Length(1)
	gt.Value(t, report.Failures[0].Key).Equal("alice@example.com")
	gt.Value(t, report.Failures[0].Phase).Equal(types.PhaseSyncUsers)
	gt.Value(t, report.UsersUpdated).Equal(1)
	gt.Bool(t, report.Failed()).True()
}

func TestSyncRun_ProvisioningDisabled(t *testing.T) {
	connector := &fakeConnector{
		groups: []string{"Engineering"},
		users: []model.RawUser{
			{Email: "alice@example.com", Groups: []string{"Engineering"}},
			{Email: "newbie@example.com", Groups: []string{"Engineering"}},
		},
	}
	target := newFakeTarget()
	engID := target.addGroup("Engineering")
	target.addUser("alice@example.com", types.UserStatusActive, engID)

	policy := model.DefaultPolicy()
	policy.Provisioning = model.ProvisionDisabled
	uc := usecase.New(connector, target, memory.New(), usecase.WithPolicy(policy))

	report, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	gt.Value(t, report.UsersProvisioned).Equal(0)
	gt.Value(t, report.UsersUpdated).Equal(1)
	gt.Value(t, target.userByEmail("newbie@example.com")).Nil()
}

func TestSyncRun_GroupExistsIsSuccess(t *testing.T) {
	connector := &fakeConnector{
		groups: []string{"Engineering"},
		users: []model.RawUser{
			{Email: "alice@example.com", Groups: []string{"Engineering"}},
		},
	}
	target := newFakeTarget()
	// The group is invisible to the initial listing but the creation
	// call reports it as already present.
	target.existsOnCreate["Engineering"] = "g-race"

	uc := usecase.New(connector, target, memory.New())

	report, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	gt.Array(t, report.Failures).Length(0)
	alice := target.userByEmail("alice@example.com")
	gt.Value(t, alice).NotNil().Required()
	gt.Value(t, alice.GroupID).Equal(types.GroupID("g-race"))
}

func TestSyncRun_GroupMappingApplied(t *testing.T) {
	connector := &fakeConnector{
		groups: []string{"eng-all", "random-dl"},
		users: []model.RawUser{
			{Email: "alice@example.com", Groups: []string{"eng-all"}},
			{Email: "bob@example.com", Groups: []string{"random-dl"}},
		},
	}
	target := newFakeTarget()

	policy := model.DefaultPolicy()
	policy.GroupMapping = map[string]string{"eng-all": "Engineering"}
	uc := usecase.New(connector, target, memory.New(), usecase.WithPolicy(policy))

	report, err := uc.Sync.Run(context.Background())
	gt.NoError(t, err).Required()

	_, ok := target.groups["Engineering"]
	gt.Bool(t, ok).True()
	_, ok = target.groups["random-dl"]
	gt.Bool(t, ok).False()

	alice := target.userByEmail("alice@example.com")
	gt.Value(t, alice).NotNil().Required()
	gt.Value(t, alice.GroupID).Equal(target.groups["Engineering"])

	// Bob's only group was dropped by the mapping, so he is provisioned
	// but left unplaced.
	gt.Value(t, report.UsersProvisioned).Equal(2)
	gt.Value(t, report.UsersUpdated).Equal(1)
}

func TestProbe(t *testing.T) {
	t.Run("succeeds with reachable systems", func(t *testing.T) {
		connector := &fakeConnector{groups: []string{"Engineering"}}
		target := newFakeTarget()
		uc := usecase.New(connector, target, memory.New())

		gt.NoError(t, uc.Probe(context.Background()))
	})

	t.Run("fails when target is unreachable", func(t *testing.T) {
		connector := &fakeConnector{groups: []string{"Engineering"}}
		target := newFakeTarget()
		target.validateErr = fmt.Errorf("bad token")
		uc := usecase.New(connector, target, memory.New())

		gt.Error(t, uc.Probe(context.Background()))
	})
}
