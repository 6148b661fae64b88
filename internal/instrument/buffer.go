package instrument

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"upload-service/internal/store"
)

var eventColumns = []string{"trace_id", "span_id", "parent_span_id", "event_type", "source", "component", "action", "entity", "record_id", "duration_ms", "status", "metadata", "created_at"}

// EventBuffer collects events in memory and periodically flushes them
// to the _events table in a batch insert.
type EventBuffer struct {
	mu      sync.Mutex
	events  []Event
	db      *sql.DB
	dialect store.Dialect
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
	stopped sync.Once
}

// NewEventBuffer creates a buffer that flushes on a timer or when full.
func NewEventBuffer(db *sql.DB, dialect store.Dialect, maxSize int, flushIntervalMs int) *EventBuffer {
	if maxSize <= 0 {
		maxSize = 500
	}
	if flushIntervalMs <= 0 {
		flushIntervalMs = 100
	}
	eb := &EventBuffer{
		db:      db,
		dialect: dialect,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	eb.ticker = time.NewTicker(time.Duration(flushIntervalMs) * time.Millisecond)
	go eb.run()
	return eb
}

func (eb *EventBuffer) run() {
	for {
		select {
		case <-eb.done:
			return
		case <-eb.ticker.C:
			eb.Flush()
		}
	}
}

// Enqueue adds an event to the buffer. If the buffer is full, a flush
// is triggered asynchronously.
func (eb *EventBuffer) Enqueue(event Event) {
	eb.mu.Lock()
	eb.events = append(eb.events, event)
	shouldFlush := len(eb.events) >= eb.maxSize
	eb.mu.Unlock()
	if shouldFlush {
		go eb.Flush()
	}
}

// Len returns the number of events waiting to be flushed.
func (eb *EventBuffer) Len() int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return len(eb.events)
}

// Flush writes all buffered events to the database in a single batch insert.
func (eb *EventBuffer) Flush() {
	eb.mu.Lock()
	if len(eb.events) == 0 {
		eb.mu.Unlock()
		return
	}
	batch := eb.events
	eb.events = nil
	eb.mu.Unlock()

	if err := eb.insert(context.Background(), batch); err != nil {
		slog.Error("event buffer flush", "events", len(batch), "error", err)
	}
}

func (eb *EventBuffer) insert(ctx context.Context, batch []Event) error {
	tx, err := eb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if stmt := eb.dialect.SyncCommitOff(); stmt != "" {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("set sync commit: %w", err)
		}
	}

	pb := eb.dialect.NewParamBuilder()
	placeholders := make([]string, 0, len(batch))
	for _, e := range batch {
		metaJSON := encodeMetadata(e)
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		values := []any{e.TraceID, e.SpanID, e.ParentSpanID, e.EventType, e.Source, e.Component, e.Action, e.Entity, e.RecordID, e.DurationMs, e.Status, metaJSON, eb.dialect.TimeParam(createdAt)}
		ph := make([]string, len(values))
		for j, v := range values {
			ph[j] = pb.Add(v)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
	}

	sqlStr := fmt.Sprintf("INSERT INTO _events (%s) VALUES %s", strings.Join(eventColumns, ","), strings.Join(placeholders, ","))
	if _, err := tx.ExecContext(ctx, sqlStr, pb.Params()...); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// encodeMetadata returns the JSON text for e.Metadata, or nil (stored as
// NULL) when there is none or it cannot be encoded.
func encodeMetadata(e Event) any {
	if e.Metadata == nil {
		return nil
	}
	b, err := json.Marshal(e.Metadata)
	if err != nil {
		slog.Error("event metadata dropped", "span_id", e.SpanID, "action", e.Action, "error", err)
		return nil
	}
	return string(b)
}

// Stop halts the background ticker and flushes remaining events.
func (eb *EventBuffer) Stop() {
	eb.stopped.Do(func() {
		eb.ticker.Stop()
		close(eb.done)
		eb.Flush()
	})
}
