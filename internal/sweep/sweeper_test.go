package sweep

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/user/viva/internal/state"
	"github.com/user/viva/internal/types"
)

type mockGenerator struct {
	mu       sync.Mutex
	sessions []string
}

func (m *mockGenerator) Generate(ctx context.Context, sessionID string, assessment *types.AssessmentSummary, student *types.Student) (*types.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, sessionID)
	return &types.Report{SessionID: types.SessionID(sessionID)}, nil
}

func (m *mockGenerator) generated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sessions...)
}

func setupSweeper(t *testing.T) (*Sweeper, *state.EventLog, *state.ReportStore, *mockGenerator) {
	t.Helper()
	dir := t.TempDir()
	events := state.NewEventLog(dir)
	reports := state.NewReportStore(dir)
	gen := &mockGenerator{}
	s := New(events, reports, gen, 30*time.Minute, 2)
	return s, events, reports, gen
}

func appendEvent(t *testing.T, events *state.EventLog, sessionID string) {
	t.Helper()
	err := events.Append(context.Background(), sessionID, &types.RawEvent{
		TS:        time.Now().UnixMilli(),
		Direction: types.DirectionClient,
		Event:     json.RawMessage(`{"type":"noop"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSweepFinalizesIdleSession(t *testing.T) {
	s, events, _, gen := setupSweeper(t)
	appendEvent(t, events, "idle-one")

	// Pretend the sweep runs an hour from now, well past the idle window.
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := gen.generated()
	if len(got) != 1 || got[0] != "idle-one" {
		t.Fatalf("expected one report for idle-one, got %v", got)
	}
}

func TestSweepSkipsActiveSession(t *testing.T) {
	s, events, _, gen := setupSweeper(t)
	appendEvent(t, events, "busy")

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := gen.generated(); len(got) != 0 {
		t.Fatalf("active session should not be finalized, got %v", got)
	}
}

func TestSweepSkipsSessionWithFreshReport(t *testing.T) {
	s, events, reports, gen := setupSweeper(t)
	appendEvent(t, events, "done")

	err := reports.Save(context.Background(), &types.Report{
		SessionID:   "done",
		GeneratedAt: time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := gen.generated(); len(got) != 0 {
		t.Fatalf("session with fresh report should be skipped, got %v", got)
	}
}

func TestSweepRegeneratesStaleReport(t *testing.T) {
	s, events, reports, gen := setupSweeper(t)

	// Report from a previous run, then the student came back and spoke
	// again before abandoning the session for good.
	err := reports.Save(context.Background(), &types.Report{
		SessionID:   "returned",
		GeneratedAt: time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	appendEvent(t, events, "returned")

	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := gen.generated()
	if len(got) != 1 || got[0] != "returned" {
		t.Fatalf("expected regeneration for returned, got %v", got)
	}
}

func TestSweepNoSessions(t *testing.T) {
	s, _, _, gen := setupSweeper(t)
	if err := s.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := gen.generated(); len(got) != 0 {
		t.Fatalf("empty log should generate nothing, got %v", got)
	}
}
