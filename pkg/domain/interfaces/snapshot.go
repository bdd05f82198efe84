package interfaces

import (
	"context"

	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

// SnapshotRepository persists the normalized user set of the most
// recent successful run, one snapshot per connector kind.
type SnapshotRepository interface {
	// Get returns the prior snapshot for the connector, or nil when no
	// snapshot exists yet (first run).
	Get(ctx context.Context, kind types.ConnectorKind) (*model.Snapshot, error)

	// Put overwrites the snapshot for the connector. Implementations must
	// make the overwrite atomic: a reader never observes a partial write.
	Put(ctx context.Context, snapshot *model.Snapshot) error
}
