// Package sweep finalizes abandoned exam sessions. A client that
// disconnects without requesting a report leaves a transcript behind;
// the sweeper finds sessions with no recent activity and generates
// their reports server-side.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/user/viva/internal/types"
)

// Generator produces a report for a session from its stored events.
type Generator interface {
	Generate(ctx context.Context, sessionID string, assessment *types.AssessmentSummary, student *types.Student) (*types.Report, error)
}

// Sweeper periodically scans the event log for idle sessions and
// generates reports for those that never got one.
type Sweeper struct {
	events      types.EventLog
	reports     types.ReportStore
	generator   Generator
	idleAfter   time.Duration
	concurrency int
	cron        *cron.Cron
	now         func() time.Time
}

// New creates a Sweeper. Sessions idle longer than idleAfter are
// finalized; at most concurrency reports are generated in parallel.
func New(events types.EventLog, reports types.ReportStore, generator Generator, idleAfter time.Duration, concurrency int) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sweeper{
		events:      events,
		reports:     reports,
		generator:   generator,
		idleAfter:   idleAfter,
		concurrency: concurrency,
		cron:        cron.New(),
		now:         time.Now,
	}
}

// Start registers the sweep on the given cron schedule and starts the
// ticker.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.Sweep(context.Background()); err != nil {
			slog.Error("session sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("session sweeper started", "schedule", schedule, "idle_after", s.idleAfter)
	return nil
}

// Stop stops the cron ticker.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Sweep runs one pass: every session whose last activity is older than
// the idle window and whose report (if any) predates that activity gets
// a report generated. A failure on one session does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context) error {
	sessions, err := s.events.Sessions(ctx)
	if err != nil {
		return err
	}

	cutoff := s.now().Add(-s.idleAfter)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range sessions {
		id := id
		stale, err := s.needsReport(ctx, id, cutoff)
		if err != nil {
			slog.Warn("skipping session during sweep", "session_id", string(id), "error", err)
			continue
		}
		if !stale {
			continue
		}
		g.Go(func() error {
			slog.Info("finalizing idle session", "session_id", string(id))
			if _, err := s.generator.Generate(ctx, string(id), nil, nil); err != nil {
				slog.Error("sweep report generation failed", "session_id", string(id), "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// needsReport reports whether the session went idle before cutoff and
// has no report newer than its last activity.
func (s *Sweeper) needsReport(ctx context.Context, id types.SessionID, cutoff time.Time) (bool, error) {
	last, err := s.events.LastActivity(ctx, string(id))
	if err != nil {
		return false, err
	}
	if last.After(cutoff) {
		return false, nil
	}
	report, err := s.reports.Get(ctx, string(id))
	if errors.Is(err, types.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return report.GeneratedAt.Before(last), nil
}
