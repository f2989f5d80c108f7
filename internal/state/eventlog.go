// internal/state/eventlog.go
package state

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/user/viva/internal/types"
)

// EventLog is a JSONL-backed append-only store of raw realtime events.
// Each session's log lives at events/<safeID>.jsonl; one self-contained JSON
// record per line. The log is never truncated or rewritten.
type EventLog struct {
	root  string
	mu    sync.Mutex
	locks map[types.SessionID]*sync.Mutex
}

// NewEventLog creates a file-backed EventLog rooted at the given directory.
func NewEventLog(root string) *EventLog {
	return &EventLog{
		root:  root,
		locks: make(map[types.SessionID]*sync.Mutex),
	}
}

// getLock returns the per-session mutex, creating one if it doesn't exist.
func (l *EventLog) getLock(id types.SessionID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lock, ok := l.locks[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	l.locks[id] = lock
	return lock
}

func (l *EventLog) eventsDir() string {
	return filepath.Join(l.root, "events")
}

func (l *EventLog) logPath(id types.SessionID) string {
	return filepath.Join(l.eventsDir(), string(id)+".jsonl")
}

// Append sanitizes the session id and appends one event record to the
// session's log as a single write. Safe under concurrent invocation for the
// same session.
func (l *EventLog) Append(_ context.Context, sessionID string, event *types.RawEvent) error {
	safeID, err := types.SanitizeSessionID(sessionID)
	if err != nil {
		return err
	}

	lock := l.getLock(safeID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(l.eventsDir(), 0o755); err != nil {
		return fmt.Errorf("create events dir: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	f, err := os.OpenFile(l.logPath(safeID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}

// Read returns every parseable event in the session's log in arrival order.
// Unparseable lines are skipped so one corrupt record cannot lose the rest
// of the session. A missing log is ErrNotFound.
func (l *EventLog) Read(_ context.Context, sessionID string) ([]types.RawEvent, error) {
	safeID, err := types.SanitizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}

	lock := l.getLock(safeID)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(l.logPath(safeID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: event log for session %s", types.ErrNotFound, safeID)
		}
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var events []types.RawEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event types.RawEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan event log: %w", err)
	}

	return events, nil
}

// Count returns the number of records in the session's log, zero when the
// log does not exist.
func (l *EventLog) Count(_ context.Context, sessionID string) (int64, error) {
	safeID, err := types.SanitizeSessionID(sessionID)
	if err != nil {
		return 0, err
	}

	lock := l.getLock(safeID)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(l.logPath(safeID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var count int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan event log: %w", err)
	}
	return count, nil
}

// Sessions lists every session that has an event log. Returns an empty slice
// when the events directory does not exist yet.
func (l *EventLog) Sessions(_ context.Context) ([]types.SessionID, error) {
	entries, err := os.ReadDir(l.eventsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read events dir: %w", err)
	}

	var ids []types.SessionID
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		ids = append(ids, types.SessionID(strings.TrimSuffix(name, ".jsonl")))
	}
	return ids, nil
}

// LastActivity returns the modification time of the session's log, which
// tracks the most recent append. A missing log is ErrNotFound.
func (l *EventLog) LastActivity(_ context.Context, sessionID string) (time.Time, error) {
	safeID, err := types.SanitizeSessionID(sessionID)
	if err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(l.logPath(safeID))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, fmt.Errorf("%w: event log for session %s", types.ErrNotFound, safeID)
		}
		return time.Time{}, fmt.Errorf("stat event log: %w", err)
	}
	return info.ModTime(), nil
}
