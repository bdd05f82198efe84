package interfaces

import "errors"

var (
	// ErrGroupExists is returned by TargetClient.CreateGroup when the
	// group name is already present in the target's group directory.
	// Group creation is idempotent, so callers treat it as success.
	ErrGroupExists = errors.New("group already exists in target system")

	// ErrUserNotFound is returned by TargetClient.GetUser for unknown IDs
	ErrUserNotFound = errors.New("user not found in target system")
)
