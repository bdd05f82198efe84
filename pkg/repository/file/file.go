// Package file persists snapshots as JSON files on local disk, one
// file per connector kind.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

type File struct {
	dir string
}

var _ interfaces.SnapshotRepository = &File{}

// New creates a file-backed snapshot store rooted at dir, creating the
// directory when absent.
func New(dir string) (*File, error) {
	if dir == "" {
		return nil, goerr.New("snapshot directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, goerr.Wrap(err, "failed to create snapshot directory", goerr.V("dir", dir))
	}
	return &File{dir: dir}, nil
}

func (f *File) path(kind types.ConnectorKind) string {
	return filepath.Join(f.dir, fmt.Sprintf("snapshot_%s.json", kind))
}

// Get reads the snapshot for the connector; a missing file means no
// prior run and returns nil.
func (f *File) Get(ctx context.Context, kind types.ConnectorKind) (*model.Snapshot, error) {
	raw, err := os.ReadFile(f.path(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to read snapshot", goerr.V("path", f.path(kind)))
	}

	var snapshot model.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, goerr.Wrap(err, "failed to decode snapshot", goerr.V("path", f.path(kind)))
	}
	return &snapshot, nil
}

// Put writes the snapshot via a temp file and rename so a reader never
// observes a partial write.
func (f *File) Put(ctx context.Context, snapshot *model.Snapshot) error {
	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode snapshot")
	}

	path := f.path(snapshot.Connector)
	tmp, err := os.CreateTemp(f.dir, "snapshot_*.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp snapshot file", goerr.V("dir", f.dir))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to write snapshot", goerr.V("path", tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close snapshot file", goerr.V("path", tmp.Name()))
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return goerr.Wrap(err, "failed to set snapshot permissions")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return goerr.Wrap(err, "failed to replace snapshot", goerr.V("path", path))
	}
	return nil
}
