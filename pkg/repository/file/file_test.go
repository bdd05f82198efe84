package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
	"github.com/secmon-lab/idsync/pkg/repository/file"
)

func TestFileRepository(t *testing.T) {
	t.Run("get before any put returns nil", func(t *testing.T) {
		repo, err := file.New(t.TempDir())
		gt.NoError(t, err).Required()

		snapshot, err := repo.Get(context.Background(), types.ConnectorLDAP)
		gt.NoError(t, err)
		gt.Value(t, snapshot).Nil()
	})

	t.Run("round trip", func(t *testing.T) {
		repo, err := file.New(t.TempDir())
		gt.NoError(t, err).Required()
		ctx := context.Background()

		put := &model.Snapshot{
			Connector: types.ConnectorLDAP,
			TakenAt:   time.Now().UTC().Truncate(time.Second),
			Users: []model.User{
				{Email: "alice@example.com", FirstName: "Alice", Groups: []string{"Engineering"}},
				{Email: "bob@example.com", Groups: []string{"Sales", "Support"}},
			},
		}
		gt.NoError(t, repo.Put(ctx, put)).Required()

		got, err := repo.Get(ctx, types.ConnectorLDAP)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil().Required()
		gt.Value(t, got.Connector).Equal(types.ConnectorLDAP)
		gt.Array(t, got.Users).Length(2)
		gt.Value(t, got.Users[0].Email).Equal("alice@example.com")
		gt.Array(t, got.Users[1].Groups).Equal([]string{"Sales", "Support"})
	})

	t.Run("snapshots are keyed by connector", func(t *testing.T) {
		repo, err := file.New(t.TempDir())
		gt.NoError(t, err).Required()
		ctx := context.Background()

		gt.NoError(t, repo.Put(ctx, &model.Snapshot{
			Connector: types.ConnectorLDAP,
			Users:     []model.User{{Email: "ldap@example.com"}},
		}))

		other, err := repo.Get(ctx, types.ConnectorEntra)
		gt.NoError(t, err)
		gt.Value(t, other).Nil()
	})

	t.Run("put overwrites the prior snapshot", func(t *testing.T) {
		repo, err := file.New(t.TempDir())
		gt.NoError(t, err).Required()
		ctx := context.Background()

		gt.NoError(t, repo.Put(ctx, &model.Snapshot{
			Connector: types.ConnectorLDAP,
			Users:     []model.User{{Email: "old@example.com"}},
		}))
		gt.NoError(t, repo.Put(ctx, &model.Snapshot{
			Connector: types.ConnectorLDAP,
			Users:     []model.User{{Email: "new@example.com"}},
		}))

		got, err := repo.Get(ctx, types.ConnectorLDAP)
		gt.NoError(t, err).Required()
		gt.Array(t, got.Users).Length(1)
		gt.Value(t, got.Users[0].Email).Equal("new@example.com")
	})
}
