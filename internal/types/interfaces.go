// internal/types/interfaces.go
package types

import (
	"context"
	"time"
)

// EventLog is append-only storage of raw session events. The file-backed
// implementation lives in internal/state; nothing above this interface may
// assume the log is file-based.
type EventLog interface {
	Append(ctx context.Context, sessionID string, event *RawEvent) error
	Read(ctx context.Context, sessionID string) ([]RawEvent, error)
	Count(ctx context.Context, sessionID string) (int64, error)
	Sessions(ctx context.Context) ([]SessionID, error)
	LastActivity(ctx context.Context, sessionID string) (time.Time, error)
}

// ReportStore persists finished reports keyed by sanitized session id.
type ReportStore interface {
	Save(ctx context.Context, report *Report) error
	Get(ctx context.Context, sessionID string) (*Report, error)
	ListSummaries(ctx context.Context) ([]ReportSummary, error)
}
