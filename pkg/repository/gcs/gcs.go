// Package gcs persists snapshots as JSON objects in a Cloud Storage
// bucket, for deployments without local disk.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
	"github.com/secmon-lab/idsync/pkg/utils/safe"
)

const objectPrefix = "snapshots/"

type GCS struct {
	client *storage.Client
	bucket string
}

var _ interfaces.SnapshotRepository = &GCS{}

func New(ctx context.Context, bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("snapshot bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Close releases the underlying client
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) object(kind types.ConnectorKind) string {
	return fmt.Sprintf("%s%s.json", objectPrefix, kind)
}

// Get reads the snapshot object; an absent object means no prior run
// and returns nil.
func (g *GCS) Get(ctx context.Context, kind types.ConnectorKind) (*model.Snapshot, error) {
	reader, err := g.client.Bucket(g.bucket).Object(g.object(kind)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to open snapshot object",
			goerr.V("bucket", g.bucket), goerr.V("object", g.object(kind)))
	}
	defer safe.Close(ctx, reader)

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read snapshot object")
	}

	var snapshot model.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, goerr.Wrap(err, "failed to decode snapshot object")
	}
	return &snapshot, nil
}

// Put overwrites the snapshot object. GCS object writes become visible
// atomically on Close, satisfying the snapshot contract.
func (g *GCS) Put(ctx context.Context, snapshot *model.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return goerr.Wrap(err, "failed to encode snapshot")
	}

	writer := g.client.Bucket(g.bucket).Object(g.object(snapshot.Connector)).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(raw); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write snapshot object",
			goerr.V("bucket", g.bucket))
	}
	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize snapshot object",
			goerr.V("bucket", g.bucket))
	}
	return nil
}
