// Package memory provides an in-memory snapshot store for development
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
)

type Memory struct {
	mu        sync.RWMutex
	snapshots map[types.ConnectorKind]*model.Snapshot
}

var _ interfaces.SnapshotRepository = &Memory{}

func New() *Memory {
	return &Memory{
		snapshots: make(map[types.ConnectorKind]*model.Snapshot),
	}
}

// Get returns the stored snapshot for the connector, or nil when none
// exists. The returned value is a deep copy.
func (m *Memory) Get(ctx context.Context, kind types.ConnectorKind) (*model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot, ok := m.snapshots[kind]
	if !ok {
		return nil, nil
	}
	return copySnapshot(snapshot), nil
}

// Put overwrites the snapshot for the connector
func (m *Memory) Put(ctx context.Context, snapshot *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[snapshot.Connector] = copySnapshot(snapshot)
	return nil
}

// copySnapshot returns a deep copy to prevent external modifications
func copySnapshot(s *model.Snapshot) *model.Snapshot {
	out := &model.Snapshot{
		Connector: s.Connector,
		TakenAt:   s.TakenAt,
		Users:     make([]model.User, len(s.Users)),
	}
	for i, u := range s.Users {
		copied := u
		copied.Groups = append([]string(nil), u.Groups...)
		out.Users[i] = copied
	}
	return out
}
