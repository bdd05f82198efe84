package interfaces

import (
	"context"

	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

// TargetClient is the target SaaS account's user/group API. Remote
// failures come back as errors carrying the remote reason string; the
// caller decides what is fatal and what is per-item recoverable.
type TargetClient interface {
	// Validate probes authentication and connectivity. A failure here is
	// fatal to a run.
	Validate(ctx context.Context) error

	// ListGroups returns the target's group directory as name → remote ID.
	ListGroups(ctx context.Context) (model.GroupTable, error)

	// CreateGroup creates a group and returns its remote ID. Creating a
	// name that already exists returns ErrGroupExists; callers treat that
	// as success.
	CreateGroup(ctx context.Context, name string) (types.GroupID, error)

	ListUsers(ctx context.Context) ([]model.TargetUser, error)
	GetUser(ctx context.Context, id types.TargetUserID) (*model.TargetUser, error)

	// CreateUser provisions an account and returns its remote ID so the
	// run can place the new user without re-listing the account.
	CreateUser(ctx context.Context, payload *model.UserPayload) (types.TargetUserID, error)
	UpdateUser(ctx context.Context, id types.TargetUserID, payload *model.UserPayload) error
	SetUserStatus(ctx context.Context, id types.TargetUserID, status types.UserStatus) error
}
