package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"

	"github.com/teranga-events/server/internal/audit"
	"github.com/teranga-events/server/internal/domain/events"
)

func TestNewRetryPolicy(t *testing.T) {
	policy := NewRetryPolicy()
	if policy == nil {
		t.Fatal("NewRetryPolicy() returned nil")
	}

	config, ok := policy.ByKind[JobKindEventRollover]
	if !ok {
		t.Fatalf("kind %s not found in ByKind map", JobKindEventRollover)
	}
	if config.MaxAttempts != EventRolloverMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", config.MaxAttempts, EventRolloverMaxAttempts)
	}

	config, ok = policy.ByKind[JobKindAuditRetention]
	if !ok {
		t.Fatalf("kind %s not found in ByKind map", JobKindAuditRetention)
	}
	if config.BaseDelay != time.Minute {
		t.Errorf("BaseDelay = %v, want 1m", config.BaseDelay)
	}
}

func TestRetryPolicy_NextRetryBacksOff(t *testing.T) {
	policy := NewRetryPolicy()
	attemptedAt := time.Now()

	job := &rivertype.JobRow{Kind: JobKindEventRollover, Attempt: 1, AttemptedAt: &attemptedAt}
	first := policy.NextRetry(job)

	job.Attempt = 3
	third := policy.NextRetry(job)

	if !third.After(first) {
		t.Errorf("attempt 3 retry %v not after attempt 1 retry %v", third, first)
	}

	wantFirst := attemptedAt.Add(30 * time.Second)
	if !first.Equal(wantFirst) {
		t.Errorf("first retry = %v, want %v", first, wantFirst)
	}
}

func TestNewPeriodicJobs(t *testing.T) {
	jobs := NewPeriodicJobs()
	if len(jobs) != 2 {
		t.Errorf("NewPeriodicJobs() returned %d jobs, want 2", len(jobs))
	}
	for i, job := range jobs {
		if job == nil {
			t.Errorf("NewPeriodicJobs()[%d] is nil", i)
		}
	}
}

type fakeEnder struct {
	ended []events.Event
	err   error
}

func (f *fakeEnder) RolloverEnded(context.Context, time.Time) ([]events.Event, error) {
	return f.ended, f.err
}

type memStore struct {
	entries []audit.Entry
}

func (s *memStore) Append(_ context.Context, entry audit.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func TestEventRolloverWorker_AuditsSystemActor(t *testing.T) {
	orgID := uuid.New()
	ended := []events.Event{
		{ID: uuid.New(), OrgID: orgID, Status: events.StatusEnded},
		{ID: uuid.New(), OrgID: orgID, Status: events.StatusEnded},
	}
	store := &memStore{}
	worker := EventRolloverWorker{
		Repo:     &fakeEnder{ended: ended},
		Recorder: audit.NewRecorder(store, zerolog.Nop()),
		Logger:   zerolog.Nop(),
	}

	err := worker.Work(context.Background(), &river.Job[EventRolloverArgs]{JobRow: &rivertype.JobRow{Attempt: 1}})
	if err != nil {
		t.Fatalf("Work() error = %v", err)
	}

	if len(store.entries) != 2 {
		t.Fatalf("recorded %d audit entries, want 2", len(store.entries))
	}
	for _, entry := range store.entries {
		if entry.Action != audit.ActionEventEnded {
			t.Errorf("action = %s, want %s", entry.Action, audit.ActionEventEnded)
		}
		if entry.UserID != nil {
			t.Errorf("UserID = %v, want nil for system transition", entry.UserID)
		}
		if entry.OrgID == nil || *entry.OrgID != orgID {
			t.Errorf("OrgID = %v, want %v", entry.OrgID, orgID)
		}
	}
}

type fakePruner struct {
	pruned int64
	calls  int
	cutoff time.Time
}

func (f *fakePruner) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return f.pruned, nil
}

func TestAuditRetentionWorker(t *testing.T) {
	pruner := &fakePruner{pruned: 5}
	worker := AuditRetentionWorker{Store: pruner, RetentionDays: 90, Logger: zerolog.Nop()}

	err := worker.Work(context.Background(), &river.Job[AuditRetentionArgs]{JobRow: &rivertype.JobRow{Attempt: 1}})
	if err != nil {
		t.Fatalf("Work() error = %v", err)
	}
	if pruner.calls != 1 {
		t.Fatalf("PruneOlderThan called %d times, want 1", pruner.calls)
	}

	wantCutoff := time.Now().AddDate(0, 0, -90)
	if pruner.cutoff.Before(wantCutoff.Add(-time.Minute)) || pruner.cutoff.After(wantCutoff.Add(time.Minute)) {
		t.Errorf("cutoff = %v, want about %v", pruner.cutoff, wantCutoff)
	}
}

func TestAuditRetentionWorker_DisabledWithoutHorizon(t *testing.T) {
	pruner := &fakePruner{}
	worker := AuditRetentionWorker{Store: pruner, RetentionDays: 0, Logger: zerolog.Nop()}

	err := worker.Work(context.Background(), &river.Job[AuditRetentionArgs]{JobRow: &rivertype.JobRow{Attempt: 1}})
	if err != nil {
		t.Fatalf("Work() error = %v", err)
	}
	if pruner.calls != 0 {
		t.Errorf("PruneOlderThan called %d times, want 0", pruner.calls)
	}
}
