// internal/state/report.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/user/viva/internal/types"
)

// ReportStore persists finished reports as one JSON file per session at
// reports/<safeID>.json. Saving overwrites any prior report for the session;
// last write wins.
type ReportStore struct {
	root string
	mu   sync.RWMutex
}

// NewReportStore creates a file-backed ReportStore rooted at the given directory.
func NewReportStore(root string) *ReportStore {
	return &ReportStore{root: root}
}

func (s *ReportStore) reportsDir() string {
	return filepath.Join(s.root, "reports")
}

func (s *ReportStore) reportPath(id types.SessionID) string {
	return filepath.Join(s.reportsDir(), string(id)+".json")
}

// Save writes the full report keyed by its sanitized session id, replacing
// any prior report. The write is atomic: temp file then rename.
func (s *ReportStore) Save(_ context.Context, report *types.Report) error {
	safeID, err := types.SanitizeSessionID(string(report.SessionID))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.reportsDir(), 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	path := s.reportPath(safeID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp report: %w", err)
	}
	return nil
}

// Get returns the report for the given session, or ErrNotFound.
func (s *ReportStore) Get(_ context.Context, sessionID string) (*types.Report, error) {
	safeID, err := types.SanitizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.reportPath(safeID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: report for session %s", types.ErrNotFound, safeID)
		}
		return nil, fmt.Errorf("read report: %w", err)
	}

	var report types.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// ListSummaries scans every persisted report and projects it to a summary,
// newest first. Unreadable or corrupt files are skipped so one damaged
// report cannot break the listing. A missing reports directory yields an
// empty list.
func (s *ReportStore) ListSummaries(_ context.Context) ([]types.ReportSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.reportsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []types.ReportSummary{}, nil
		}
		return nil, fmt.Errorf("read reports dir: %w", err)
	}

	summaries := make([]types.ReportSummary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.reportsDir(), name))
		if err != nil {
			continue
		}
		var report types.Report
		if err := json.Unmarshal(data, &report); err != nil {
			continue
		}
		if report.SessionID == "" {
			continue
		}
		summary := types.ReportSummary{
			SessionID:    report.SessionID,
			GeneratedAt:  report.GeneratedAt,
			MasteryLevel: report.Report.MasteryLevel,
			Confidence:   report.Report.Confidence,
		}
		if summary.MasteryLevel == "" && report.Assessment != nil {
			summary.MasteryLevel = report.Assessment.MasteryLevel
			summary.Confidence = report.Assessment.Confidence
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].GeneratedAt.After(summaries[j].GeneratedAt)
	})
	return summaries, nil
}
