package usecase

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

func TestFilterChanged(t *testing.T) {
	current := []model.User{
		{Email: "alice@example.com", Groups: []string{"Engineering"}},
		{Email: "bob@example.com", Groups: []string{"Sales"}},
		{Email: "carol@example.com", Groups: []string{"Engineering"}},
	}

	t.Run("nil snapshot treats every user as changed", func(t *testing.T) {
		changed, skipped := filterChanged(current, nil)
		gt.Array(t, changed).Length(3)
		gt.Value(t, skipped).Equal(0)
	})

	t.Run("identical records are skipped", func(t *testing.T) {
		prior := &model.Snapshot{
			Connector: types.ConnectorLDAP,
			TakenAt:   time.Now(),
			Users: []model.User{
				{Email: "alice@example.com", Groups: []string{"Engineering"}},
				{Email: "bob@example.com", Groups: []string{"Marketing"}},
			},
		}
		changed, skipped := filterChanged(current, prior)
		gt.Value(t, skipped).Equal(1)
		gt.Array(t, changed).Length(2)
		gt.Value(t, changed[0].Email).Equal("bob@example.com")
		gt.Value(t, changed[1].Email).Equal("carol@example.com")
	})

	t.Run("email comparison is case-insensitive", func(t *testing.T) {
		prior := &model.Snapshot{
			Users: []model.User{
				{Email: "Alice@Example.com", Groups: []string{"Engineering"}},
			},
		}
		_, skipped := filterChanged(current[:1], prior)
		gt.Value(t, skipped).Equal(1)
	})

	t.Run("attribute change marks the user changed", func(t *testing.T) {
		prior := &model.Snapshot{
			Users: []model.User{
				{Email: "alice@example.com", Title: "Engineer", Groups: []string{"Engineering"}},
			},
		}
		changed, skipped := filterChanged(current[:1], prior)
		gt.Value(t, skipped).Equal(0)
		gt.Array(t, changed).Length(1)
	})
}

func TestMissingGroups(t *testing.T) {
	groups := []model.Group{
		{Name: "Engineering"},
		{Name: "Sales"},
		{Name: "Marketing"},
	}
	table := model.GroupTable{
		"Sales": "g-1",
	}

	missing := missingGroups(groups, table)
	gt.Array(t, missing).Length(2)
	gt.Value(t, missing[0].Name).Equal("Engineering")
	gt.Value(t, missing[1].Name).Equal("Marketing")
}
