package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/teranga-events/server/internal/audit"
	"github.com/teranga-events/server/internal/domain/events"
)

// EventRolloverArgs defines the job that ends published events whose end
// time has passed.
type EventRolloverArgs struct{}

func (EventRolloverArgs) Kind() string { return JobKindEventRollover }

// EventEnder flips overdue published events to ended and returns them.
type EventEnder interface {
	RolloverEnded(ctx context.Context, now time.Time) ([]events.Event, error)
}

// EventRolloverWorker marks published events past their end time as ended.
// Each transition is audit-logged with no acting user: the clock did it.
type EventRolloverWorker struct {
	river.WorkerDefaults[EventRolloverArgs]
	Repo     EventEnder
	Recorder *audit.Recorder
	Logger   zerolog.Logger
}

func (EventRolloverWorker) Kind() string { return JobKindEventRollover }

func (w EventRolloverWorker) Work(ctx context.Context, job *river.Job[EventRolloverArgs]) error {
	if w.Repo == nil {
		return fmt.Errorf("repository not configured")
	}

	ended, err := w.Repo.RolloverEnded(ctx, time.Now())
	if err != nil {
		w.Logger.Error().Err(err).Int("attempt", job.Attempt).Msg("event rollover failed")
		return fmt.Errorf("rollover events: %w", err)
	}

	for i := range ended {
		event := &ended[i]
		w.Recorder.Record(ctx, audit.Entry{
			OrgID:      &event.OrgID,
			Action:     audit.ActionEventEnded,
			EntityType: "event",
			EntityID:   event.ID.String(),
			Changes:    map[string]any{"status": audit.Change(string(events.StatusPublished), string(events.StatusEnded))},
		})
	}

	if len(ended) > 0 {
		w.Logger.Info().Int("count", len(ended)).Msg("rolled over ended events")
	}
	return nil
}
