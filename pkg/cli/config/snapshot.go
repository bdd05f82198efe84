package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/repository/file"
	"github.com/secmon-lab/idsync/pkg/repository/firestore"
	"github.com/secmon-lab/idsync/pkg/repository/gcs"
	"github.com/secmon-lab/idsync/pkg/repository/memory"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

// Snapshot holds CLI flags for the snapshot store backend
type Snapshot struct {
	backend    string
	dir        string
	projectID  string
	databaseID string
	bucket     string
}

// Flags returns CLI flags for snapshot store configuration
func (s *Snapshot) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "snapshot-backend",
			Usage:       "Snapshot store backend (file, memory, firestore or gcs)",
			Value:       "file",
			Category:    "Snapshot",
			Sources:     cli.EnvVars("IDSYNC_SNAPSHOT_BACKEND"),
			Destination: &s.backend,
		},
		&cli.StringFlag{
			Name:        "snapshot-dir",
			Usage:       "Directory for file-backed snapshots",
			Value:       ".idsync",
			Category:    "Snapshot",
			Sources:     cli.EnvVars("IDSYNC_SNAPSHOT_DIR"),
			Destination: &s.dir,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Snapshot",
			Sources:     cli.EnvVars("IDSYNC_FIRESTORE_PROJECT_ID"),
			Destination: &s.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Snapshot",
			Sources:     cli.EnvVars("IDSYNC_FIRESTORE_DATABASE_ID"),
			Destination: &s.databaseID,
		},
		&cli.StringFlag{
			Name:        "snapshot-bucket",
			Usage:       "Cloud Storage bucket (required when using gcs backend)",
			Category:    "Snapshot",
			Sources:     cli.EnvVars("IDSYNC_SNAPSHOT_BUCKET"),
			Destination: &s.bucket,
		},
	}
}

// Configure initializes the snapshot store for the configured backend.
// The returned closer releases any underlying client.
func (s *Snapshot) Configure(ctx context.Context) (interfaces.SnapshotRepository, func(), error) {
	noop := func() {}

	switch s.backend {
	case "file":
		repo, err := file.New(s.dir)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize file snapshot store")
		}
		logging.Default().Info("Using file snapshot store", "dir", s.dir)
		return repo, noop, nil

	case "memory":
		logging.Default().Info("Using in-memory snapshot store (development mode)")
		return memory.New(), noop, nil

	case "firestore":
		if s.projectID == "" {
			return nil, nil, goerr.New("firestore-project-id is required when using firestore backend")
		}
		repo, err := firestore.New(ctx, s.projectID, s.databaseID)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize firestore snapshot store")
		}
		logging.Default().Info("Using Firestore snapshot store",
			"project_id", s.projectID,
			"database_id", s.databaseID,
		)
		closer := func() {
			if err := repo.Close(); err != nil {
				logging.Default().Error("failed to close firestore client", "error", err.Error())
			}
		}
		return repo, closer, nil

	case "gcs":
		repo, err := gcs.New(ctx, s.bucket)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize gcs snapshot store")
		}
		logging.Default().Info("Using Cloud Storage snapshot store", "bucket", s.bucket)
		closer := func() {
			if err := repo.Close(); err != nil {
				logging.Default().Error("failed to close storage client", "error", err.Error())
			}
		}
		return repo, closer, nil

	default:
		return nil, nil, goerr.New("invalid snapshot backend", goerr.V("backend", s.backend))
	}
}
