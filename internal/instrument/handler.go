package instrument

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"upload-service/internal/store"
)

const eventSelect = "SELECT trace_id, span_id, parent_span_id, event_type, source, component, action, entity, record_id, duration_ms, status, metadata, created_at FROM _events"

// EventFilter narrows an event query. Empty fields are ignored.
type EventFilter struct {
	Source    string
	Action    string
	Entity    string
	RecordID  string
	TraceID   string
	Status    string
	EventType string
	Limit     int
	Offset    int
}

// QueryEvents returns events matching f, newest first.
func QueryEvents(ctx context.Context, db *sql.DB, dialect store.Dialect, f EventFilter) ([]map[string]any, error) {
	pb := dialect.NewParamBuilder()
	var conditions []string
	for _, c := range []struct{ col, val string }{
		{"source", f.Source},
		{"action", f.Action},
		{"entity", f.Entity},
		{"record_id", f.RecordID},
		{"trace_id", f.TraceID},
		{"status", f.Status},
		{"event_type", f.EventType},
	} {
		if c.val != "" {
			conditions = append(conditions, fmt.Sprintf("%s = %s", c.col, pb.Add(c.val)))
		}
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := f.Limit
	if limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	sqlStr := fmt.Sprintf("%s%s ORDER BY created_at DESC LIMIT %s OFFSET %s", eventSelect, where, pb.Add(limit), pb.Add(offset))
	rows, err := store.QueryRows(ctx, db, sqlStr, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

// EventHandler exposes read-only endpoints over the audit trail.
type EventHandler struct {
	db      *sql.DB
	dialect store.Dialect
}

// NewEventHandler creates an EventHandler backed by the given db and dialect.
func NewEventHandler(db *sql.DB, dialect store.Dialect) *EventHandler {
	return &EventHandler{db: db, dialect: dialect}
}

// RegisterRoutes mounts the event endpoints under /_events.
func (h *EventHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/_events", h.List)
	app.Get("/_events/trace/:traceId", h.GetTrace)
}

// List handles GET /_events.
func (h *EventHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.Query("per_page", "50"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	rows, err := QueryEvents(c.UserContext(), h.db, h.dialect, EventFilter{
		Source:    c.Query("source"),
		Action:    c.Query("action"),
		Entity:    c.Query("entity"),
		RecordID:  c.Query("record_id"),
		TraceID:   c.Query("trace_id"),
		Status:    c.Query("status"),
		EventType: c.Query("event_type"),
		Limit:     perPage,
		Offset:    (page - 1) * perPage,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": rows,
		"pagination": fiber.Map{
			"page":     page,
			"per_page": perPage,
		},
	})
}

// GetTrace handles GET /_events/trace/:traceId and returns every span of
// one trace, oldest first.
func (h *EventHandler) GetTrace(c *fiber.Ctx) error {
	traceID := c.Params("traceId")
	pb := h.dialect.NewParamBuilder()
	rows, err := store.QueryRows(c.UserContext(), h.db,
		fmt.Sprintf("%s WHERE trace_id = %s ORDER BY created_at ASC", eventSelect, pb.Add(traceID)),
		pb.Params()...,
	)
	if err != nil {
		return fmt.Errorf("get trace: %w", err)
	}
	if len(rows) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": fiber.Map{"code": "NOT_FOUND", "message": "Trace not found: " + traceID}})
	}

	var root map[string]any
	for _, row := range rows {
		if row["parent_span_id"] == nil {
			root = row
			break
		}
	}

	var totalDurationMs any
	if root != nil {
		totalDurationMs = root["duration_ms"]
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"trace_id":          traceID,
			"root_span":         root,
			"spans":             rows,
			"total_duration_ms": totalDurationMs,
		},
	})
}
