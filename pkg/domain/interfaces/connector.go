package interfaces

import (
	"context"

	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

// Connector translates one directory's native protocol into raw
// group/user records. Decoding quirks of a specific directory (binary
// attributes, ranged member paging) are the connector's responsibility;
// the engine receives UTF-8 text fields already decoded.
type Connector interface {
	Kind() types.ConnectorKind

	// FetchGroups returns the directory's group names in a stable order.
	FetchGroups(ctx context.Context) ([]string, error)

	// FetchUsers returns the raw user records belonging to the given
	// groups. Group names on the records are the directory's own, before
	// any remapping.
	FetchUsers(ctx context.Context, groups []string) ([]model.RawUser, error)
}
