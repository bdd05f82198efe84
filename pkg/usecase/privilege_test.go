package usecase

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

func TestResolveRoles(t *testing.T) {
	policy := model.DefaultPolicy()

	cases := []struct {
		name   string
		groups []string
		want   []types.Role
	}{
		{
			name:   "no markers yields normal user",
			groups: []string{"Engineering"},
			want:   []types.Role{types.RoleNormalUser},
		},
		{
			name:   "account admin marker",
			groups: []string{"Engineering", policy.MarkerAccountAdmin},
			want:   []types.Role{types.RoleAccountAdmin},
		},
		{
			name:   "group admin marker",
			groups: []string{"Engineering", policy.MarkerGroupAdmin},
			want:   []types.Role{types.RoleGroupAdmin},
		},
		{
			name:   "both markers",
			groups: []string{policy.MarkerAccountAdmin, policy.MarkerGroupAdmin, "Engineering"},
			want:   []types.Role{types.RoleAccountAdmin, types.RoleGroupAdmin},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &model.User{Email: "x@example.com", Groups: tc.groups}
			gt.Array(t, resolveRoles(u, policy)).Equal(tc.want)
		})
	}
}

func TestChoosePlacement(t *testing.T) {
	table := model.GroupTable{
		"Engineering": "g-1",
		"Sales":       "g-2",
	}

	t.Run("first group in sorted order wins", func(t *testing.T) {
		u := &model.User{Groups: []string{"Sales", "Engineering"}}
		name, id, ok := choosePlacement(u, table)
		gt.Bool(t, ok).True()
		gt.Value(t, name).Equal("Engineering")
		gt.Value(t, id).Equal(types.GroupID("g-1"))
	})

	t.Run("groups unknown to the target are skipped", func(t *testing.T) {
		u := &model.User{Groups: []string{"Aardvark Club", "Sales"}}
		name, _, ok := choosePlacement(u, table)
		gt.Bool(t, ok).True()
		gt.Value(t, name).Equal("Sales")
	})

	t.Run("no known group yields no placement", func(t *testing.T) {
		u := &model.User{Groups: []string{"Unknown"}}
		_, _, ok := choosePlacement(u, table)
		gt.Bool(t, ok).False()
	})
}

func TestPlanActions(t *testing.T) {
	policy := model.DefaultPolicy()
	table := model.GroupTable{"Engineering": "g-1"}
	u := &model.User{Email: "alice@example.com", Groups: []string{"Engineering"}}

	t.Run("absent user gets provision then placement", func(t *testing.T) {
		actions := planActions(u, nil, table, policy)
		gt.Array(t, actions).Length(2)
		gt.Value(t, actions[0].Kind).Equal(model.ActionProvision)
		gt.Value(t, actions[1].Kind).Equal(model.ActionUpdateGroup)
		gt.Value(t, actions[1].Group).Equal("Engineering")
	})

	t.Run("existing user gets placement only", func(t *testing.T) {
		existing := &model.TargetUser{ID: "u-1", Email: u.Email}
		actions := planActions(u, existing, table, policy)
		gt.Array(t, actions).Length(1)
		gt.Value(t, actions[0].Kind).Equal(model.ActionUpdateGroup)
	})

	t.Run("absent user with provisioning disabled gets nothing", func(t *testing.T) {
		disabled := model.DefaultPolicy()
		disabled.Provisioning = model.ProvisionDisabled
		actions := planActions(u, nil, table, disabled)
		gt.Array(t, actions).Length(0)
	})

	t.Run("unplaceable user still gets provisioned", func(t *testing.T) {
		loner := &model.User{Email: "loner@example.com", Groups: []string{"Unknown"}}
		actions := planActions(loner, nil, table, policy)
		gt.Array(t, actions).Length(1)
		gt.Value(t, actions[0].Kind).Equal(model.ActionProvision)
	})
}
