package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types emitted by the engine.
const (
	EventQuizSubmitted  = "quiz_submitted"
	EventTopicCompleted = "topic_completed"
	EventQuarterToggled = "quarter_toggled"
	EventProgressReset  = "progress_reset"
	EventContentViewed  = "content_viewed"
)

// Event is an analytics record persisted to the events table.
type Event struct {
	StudentID string
	EventType string
	Data      map[string]any
	CreatedAt time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// EventSchema creates the events table.
const EventSchema = `
CREATE TABLE IF NOT EXISTS events (
	id BIGSERIAL PRIMARY KEY,
	student_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	data JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS events_student_idx ON events (student_id, created_at);
`

// PostgresEventLogger inserts events into the events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

// Migrate applies the events schema.
func (l *PostgresEventLogger) Migrate(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, EventSchema); err != nil {
		return fmt.Errorf("applying events schema: %w", err)
	}
	return nil
}

func (l *PostgresEventLogger) LogEvent(event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.StudentID == "" {
		return fmt.Errorf("student_id is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO events (student_id, event_type, data, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		event.StudentID,
		event.EventType,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.EventType,
		"student_id", event.StudentID,
	)
	return nil
}
