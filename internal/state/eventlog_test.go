// internal/state/eventlog_test.go
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/user/viva/internal/types"
)

func TestEventLogAppendRead(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog(dir)
	ctx := context.Background()

	event := &types.RawEvent{
		TS:        1700000000000,
		Direction: types.DirectionServer,
		Event:     json.RawMessage(`{"type":"response.output_text.done","text":"hello"}`),
	}
	if err := log.Append(ctx, "session-1", event); err != nil {
		t.Fatal(err)
	}

	events, err := log.Read(ctx, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].TS != 1700000000000 {
		t.Errorf("expected ts 1700000000000, got %d", events[0].TS)
	}
	if events[0].Direction != types.DirectionServer {
		t.Errorf("expected direction server, got %q", events[0].Direction)
	}

	count, err := log.Count(ctx, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestEventLogSanitizesSessionID(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog(dir)
	ctx := context.Background()

	event := &types.RawEvent{TS: 1, Direction: types.DirectionClient, Event: json.RawMessage(`{}`)}
	if err := log.Append(ctx, "abc/123; DROP", event); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "events", "abc123DROP.jsonl")); err != nil {
		t.Errorf("expected sanitized log file: %v", err)
	}
}

func TestEventLogInvalidSessionID(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog(dir)
	ctx := context.Background()

	event := &types.RawEvent{TS: 1, Direction: types.DirectionClient, Event: json.RawMessage(`{}`)}
	err := log.Append(ctx, "///", event)
	if !errors.Is(err, types.ErrInvalidSessionID) {
		t.Errorf("expected ErrInvalidSessionID, got %v", err)
	}
}

func TestEventLogReadMissing(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog(dir)

	_, err := log.Read(context.Background(), "nope")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEventLogSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog(dir)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		event := &types.RawEvent{
			TS:        int64(i),
			Direction: types.DirectionServer,
			Event:     json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)),
		}
		if err := log.Append(ctx, "sess", event); err != nil {
			t.Fatal(err)
		}
	}

	// Inject a corrupt line in the middle of the log.
	path := filepath.Join(dir, "events", "sess.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("{not json at all\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	event := &types.RawEvent{TS: 99, Direction: types.DirectionClient, Event: json.RawMessage(`{"n":99}`)}
	if err := log.Append(ctx, "sess", event); err != nil {
		t.Fatal(err)
	}

	events, err := log.Read(ctx, "sess")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 parseable events, got %d", len(events))
	}
	if events[3].TS != 99 {
		t.Errorf("expected last event ts 99, got %d", events[3].TS)
	}
}

func TestEventLogConcurrentAppend(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog(dir)
	ctx := context.Background()

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				event := &types.RawEvent{
					TS:        int64(w*perWriter + i),
					Direction: types.DirectionClient,
					Event:     json.RawMessage(`{"type":"noise"}`),
				}
				if err := log.Append(ctx, "shared", event); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	events, err := log.Read(ctx, "shared")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != writers*perWriter {
		t.Errorf("expected %d events, got %d", writers*perWriter, len(events))
	}
}

func TestEventLogSessions(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog(dir)
	ctx := context.Background()

	ids, err := log.Sessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no sessions before any append, got %d", len(ids))
	}

	event := &types.RawEvent{TS: 1, Direction: types.DirectionClient, Event: json.RawMessage(`{}`)}
	for _, id := range []string{"alpha", "beta"} {
		if err := log.Append(ctx, id, event); err != nil {
			t.Fatal(err)
		}
	}

	ids, err = log.Sessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(ids))
	}

	if _, err := log.LastActivity(ctx, "alpha"); err != nil {
		t.Errorf("last activity for existing session: %v", err)
	}
	if _, err := log.LastActivity(ctx, "missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing session, got %v", err)
	}
}
