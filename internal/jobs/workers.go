package jobs

import (
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/teranga-events/server/internal/audit"
)

// NewWorkers registers every worker the server runs.
func NewWorkers(ender EventEnder, pruner AuditPruner, recorder *audit.Recorder, retentionDays int, logger zerolog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[EventRolloverArgs](workers, EventRolloverWorker{
		Repo:     ender,
		Recorder: recorder,
		Logger:   logger.With().Str("job", JobKindEventRollover).Logger(),
	})
	river.AddWorker[AuditRetentionArgs](workers, AuditRetentionWorker{
		Store:         pruner,
		RetentionDays: retentionDays,
		Logger:        logger.With().Str("job", JobKindAuditRetention).Logger(),
	})
	return workers
}
