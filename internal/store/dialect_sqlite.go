package store

import (
	"fmt"
	"time"
)

// sqliteTimeLayout sorts lexicographically, which keeps created_at
// comparisons correct on a TEXT column.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder {
	return &sqliteParamBuilder{}
}

func (d *SQLiteDialect) EventsTableSQL() string { return sqliteEventsSQL }

func (d *SQLiteDialect) TimeParam(t time.Time) any {
	return t.UTC().Format(sqliteTimeLayout)
}

func (d *SQLiteDialect) OlderThanExpr(col string, pb ParamBuilder, cutoff time.Time) string {
	return fmt.Sprintf("%s < %s", col, pb.Add(d.TimeParam(cutoff)))
}

func (d *SQLiteDialect) SyncCommitOff() string { return "" }

const sqliteEventsSQL = `
CREATE TABLE IF NOT EXISTS _events (
    span_id         TEXT PRIMARY KEY,
    trace_id        TEXT NOT NULL,
    parent_span_id  TEXT,
    event_type      TEXT NOT NULL,
    source          TEXT NOT NULL,
    component       TEXT NOT NULL,
    action          TEXT NOT NULL,
    entity          TEXT,
    record_id       TEXT,
    duration_ms     REAL,
    status          TEXT,
    metadata        TEXT,
    created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_trace ON _events (trace_id);
CREATE INDEX IF NOT EXISTS idx_events_record_created ON _events (record_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_created ON _events (created_at DESC);
`
