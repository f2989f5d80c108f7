// internal/report/generator.go
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/viva/internal/transcript"
	"github.com/user/viva/internal/types"
)

// Notifier is told about finished reports. Delivery is best effort.
type Notifier interface {
	ReportReady(report *types.Report)
}

// Generator orchestrates the report pipeline for one session: read the raw
// event log, extract the transcript, synthesize the assessment, persist the
// result. Generation is not exclusive per session; when two invocations
// race, the last save wins.
type Generator struct {
	events   types.EventLog
	reports  types.ReportStore
	synth    *Synthesizer
	notifier Notifier
}

// NewGenerator wires the pipeline. notifier may be nil.
func NewGenerator(events types.EventLog, reports types.ReportStore, synth *Synthesizer, notifier Notifier) *Generator {
	return &Generator{
		events:   events,
		reports:  reports,
		synth:    synth,
		notifier: notifier,
	}
}

// Generate produces and persists the report for a session, overwriting any
// prior one. The optional assessment and student records are carried into
// the stored report verbatim.
func (g *Generator) Generate(ctx context.Context, sessionID string, assessment *types.AssessmentSummary, student *types.Student) (*types.Report, error) {
	safeID, err := types.SanitizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}

	events, err := g.events.Read(ctx, string(safeID))
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}

	lines := transcript.Extract(events)

	output, err := g.synth.Synthesize(ctx, lines, assessment)
	if err != nil {
		return nil, fmt.Errorf("synthesize report: %w", err)
	}

	report := &types.Report{
		SessionID:   safeID,
		GeneratedAt: time.Now().UTC(),
		Student:     student,
		Assessment:  assessment,
		Transcript:  lines,
		Report:      output,
	}

	if err := g.reports.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	if g.notifier != nil {
		go g.notifier.ReportReady(report)
	}

	slog.Info("report generated",
		"session_id", string(safeID),
		"lines", len(report.Transcript),
		"mastery_level", report.Report.MasteryLevel,
	)
	return report, nil
}
