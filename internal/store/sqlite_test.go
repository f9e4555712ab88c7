package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/splee/ribbit/internal/event"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ribbit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func sampleEvents() []event.Destruction {
	return []event.Destruction{
		{
			Owner:     "AgentOwner",
			Destroyer: "AgentX",
			Type:      event.TypeResonator,
			Count:     3,
			Time:      time.Date(2015, 3, 1, 14, 32, 0, 0, time.UTC),
			Lat:       37.5765,
			Lng:       -122.4195,
		},
		{
			Owner:     "AgentOwner",
			Destroyer: "AgentY",
			Type:      event.TypeLink,
			Count:     1,
			Time:      time.Date(2015, 3, 1, 15, 1, 0, 0, time.UTC),
			Lat:       37.5765,
			Lng:       -122.4195,
		},
	}
}

func TestSaveAndListEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveEvents(ctx, "msg-1", sampleEvents()); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}

	got, err := s.ListEvents(ctx, EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}

	// Oldest first.
	if got[0].Destroyer != "AgentX" || got[1].Destroyer != "AgentY" {
		t.Errorf("wrong order: %+v", got)
	}
	if got[0].Lat != 37.5765 || got[0].Lng != -122.4195 {
		t.Errorf("coordinates = %v, %v", got[0].Lat, got[0].Lng)
	}
	if !got[0].Time.Equal(time.Date(2015, 3, 1, 14, 32, 0, 0, time.UTC)) {
		t.Errorf("Time = %v", got[0].Time)
	}
	if got[0].Count != 3 {
		t.Errorf("Count = %d, want 3", got[0].Count)
	}
}

func TestListEventsFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveEvents(ctx, "msg-1", sampleEvents()); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}

	links, err := s.ListEvents(ctx, EventFilter{Type: event.TypeLink})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(links) != 1 || links[0].Type != event.TypeLink {
		t.Errorf("got %+v, want one link event", links)
	}

	none, err := s.ListEvents(ctx, EventFilter{Owner: "SomeoneElse"})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d events for unknown owner, want 0", len(none))
	}

	limited, err := s.ListEvents(ctx, EventFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d events with limit 1", len(limited))
	}
}

func TestSaveEventsEmpty(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveEvents(context.Background(), "msg-1", nil); err != nil {
		t.Fatalf("SaveEvents(nil): %v", err)
	}
}

func TestProcessedMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	done, err := s.IsProcessed(ctx, "msg-1")
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if done {
		t.Error("fresh message reported as processed")
	}

	if err := s.MarkProcessed(ctx, "msg-1"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	done, err = s.IsProcessed(ctx, "msg-1")
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if !done {
		t.Error("marked message not reported as processed")
	}

	// Marking twice is fine.
	if err := s.MarkProcessed(ctx, "msg-1"); err != nil {
		t.Fatalf("MarkProcessed again: %v", err)
	}
}

// Messages without a Message-ID header can never be deduplicated.
func TestProcessedEmptyMessageID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.MarkProcessed(ctx, ""); err != nil {
		t.Fatalf("MarkProcessed(\"\"): %v", err)
	}

	done, err := s.IsProcessed(ctx, "")
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if done {
		t.Error("empty message ID must never count as processed")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ribbit.db")

	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.SaveEvents(context.Background(), "msg-1", sampleEvents()); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}
	s1.Close()

	// Reopening must not re-run migrations or lose data.
	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	got, err := s2.ListEvents(context.Background(), EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d events after reopen, want 2", len(got))
	}
}
