package usecase

import (
	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/service/normalizer"
	"github.com/secmon-lab/idsync/pkg/utils/pool"
	"github.com/secmon-lab/idsync/pkg/utils/progress"
)

// UseCases bundles the engine's use cases around shared collaborators
type UseCases struct {
	connector interfaces.Connector
	target    interfaces.TargetClient
	snapshots interfaces.SnapshotRepository
	notifier  interfaces.Notifier
	policy    *model.Policy
	norm      *normalizer.Normalizer
	progress  *progress.Reporter
	poolWidth int

	Sync *SyncUseCase
}

type Option func(*UseCases)

// WithNotifier attaches an operator notification channel for run reports
func WithNotifier(n interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = n
	}
}

// WithPolicy overrides the default reconciliation policy
func WithPolicy(p *model.Policy) Option {
	return func(uc *UseCases) {
		uc.policy = p
	}
}

// WithPoolWidth overrides the dispatcher worker count
func WithPoolWidth(width int) Option {
	return func(uc *UseCases) {
		uc.poolWidth = width
	}
}

// WithProgress attaches an interactive progress reporter
func WithProgress(r *progress.Reporter) Option {
	return func(uc *UseCases) {
		uc.progress = r
	}
}

func New(connector interfaces.Connector, target interfaces.TargetClient, snapshots interfaces.SnapshotRepository, opts ...Option) *UseCases {
	uc := &UseCases{
		connector: connector,
		target:    target,
		snapshots: snapshots,
		policy:    model.DefaultPolicy(),
		poolWidth: pool.DefaultWidth,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.norm = normalizer.New(uc.policy.GroupMapping, uc.policy.Markers()...)
	uc.Sync = newSyncUseCase(uc)

	return uc
}
