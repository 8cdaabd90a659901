package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
)

// AuditRetentionArgs defines the job that prunes old audit entries.
type AuditRetentionArgs struct{}

func (AuditRetentionArgs) Kind() string { return JobKindAuditRetention }

// AuditPruner deletes audit entries older than the cutoff.
type AuditPruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRetentionWorker prunes audit entries beyond the retention horizon.
// RetentionDays zero or negative disables pruning entirely.
type AuditRetentionWorker struct {
	river.WorkerDefaults[AuditRetentionArgs]
	Store         AuditPruner
	RetentionDays int
	Logger        zerolog.Logger
}

func (AuditRetentionWorker) Kind() string { return JobKindAuditRetention }

func (w AuditRetentionWorker) Work(ctx context.Context, job *river.Job[AuditRetentionArgs]) error {
	if w.RetentionDays <= 0 {
		return nil
	}
	if w.Store == nil {
		return fmt.Errorf("audit store not configured")
	}

	cutoff := time.Now().AddDate(0, 0, -w.RetentionDays)
	pruned, err := w.Store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		w.Logger.Error().Err(err).Int("attempt", job.Attempt).Msg("audit retention failed")
		return fmt.Errorf("prune audit entries: %w", err)
	}

	if pruned > 0 {
		w.Logger.Info().Int64("pruned", pruned).Time("cutoff", cutoff).Msg("pruned audit entries")
	}
	return nil
}
