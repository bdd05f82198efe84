// Package firestore persists snapshots in a Firestore collection, one
// document per connector kind.
package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

const defaultCollection = "snapshots"

type Firestore struct {
	client     *firestore.Client
	collection string
}

var _ interfaces.SnapshotRepository = &Firestore{}

type Option func(*Firestore)

// WithCollection overrides the snapshot collection name
func WithCollection(name string) Option {
	return func(f *Firestore) {
		f.collection = name
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID), goerr.V("database_id", databaseID))
	}

	f := &Firestore{
		client:     client,
		collection: defaultCollection,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Close releases the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}

// Get reads the snapshot document for the connector; an absent
// document means no prior run and returns nil.
func (f *Firestore) Get(ctx context.Context, kind types.ConnectorKind) (*model.Snapshot, error) {
	doc, err := f.client.Collection(f.collection).Doc(kind.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get snapshot document", goerr.V("kind", kind))
	}

	var snapshot model.Snapshot
	if err := doc.DataTo(&snapshot); err != nil {
		return nil, goerr.Wrap(err, "failed to decode snapshot document", goerr.V("kind", kind))
	}
	return &snapshot, nil
}

// Put overwrites the snapshot document. Firestore document writes are
// atomic, satisfying the snapshot contract.
func (f *Firestore) Put(ctx context.Context, snapshot *model.Snapshot) error {
	_, err := f.client.Collection(f.collection).Doc(snapshot.Connector.String()).Set(ctx, snapshot)
	if err != nil {
		return goerr.Wrap(err, "failed to write snapshot document",
			goerr.V("kind", snapshot.Connector))
	}
	return nil
}
