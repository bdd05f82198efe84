package interfaces

import (
	"context"

	"github.com/secmon-lab/idsync/pkg/domain/model"
)

// Notifier delivers a run summary to an operator channel
type Notifier interface {
	NotifyRunReport(ctx context.Context, report *model.RunReport) error
}
