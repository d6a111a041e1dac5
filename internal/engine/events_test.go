package engine_test

import (
	"testing"
	"time"

	"github.com/Tristan28-web/Edu-Track-sub000/internal/engine"
)

func TestNopEventLogger(t *testing.T) {
	logger := engine.NopEventLogger{}
	if err := logger.LogEvent(engine.Event{}); err != nil {
		t.Errorf("LogEvent() error = %v, want nil", err)
	}
}

func TestMemoryEventLogger(t *testing.T) {
	logger := engine.NewMemoryEventLogger()

	err := logger.LogEvent(engine.Event{
		StudentID: "s-1",
		EventType: engine.EventQuizSubmitted,
		Data:      map[string]any{"quiz_id": "counting-check"},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("Events() returned %d events, want 1", len(events))
	}
	if events[0].EventType != engine.EventQuizSubmitted {
		t.Errorf("EventType = %s, want %s", events[0].EventType, engine.EventQuizSubmitted)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not defaulted")
	}
}

func TestMemoryEventLogger_RequiresType(t *testing.T) {
	logger := engine.NewMemoryEventLogger()
	if err := logger.LogEvent(engine.Event{StudentID: "s-1"}); err == nil {
		t.Fatal("LogEvent() without type succeeded, want error")
	}
}

func TestMemoryEventLogger_PreservesTimestamp(t *testing.T) {
	logger := engine.NewMemoryEventLogger()
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	if err := logger.LogEvent(engine.Event{
		StudentID: "s-1",
		EventType: engine.EventContentViewed,
		CreatedAt: at,
	}); err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}
	if got := logger.Events()[0].CreatedAt; !got.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", got, at)
	}
}
