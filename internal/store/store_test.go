package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"upload-service/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "data"),
		Name: "events",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNew_DefaultsToSQLite(t *testing.T) {
	s := newTestStore(t)
	if s.Dialect.Name() != "sqlite" {
		t.Fatalf("expected sqlite dialect, got %s", s.Dialect.Name())
	}
}

func TestBootstrap_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := s.Bootstrap(ctx); err != nil {
			t.Fatalf("Bootstrap #%d: %v", i+1, err)
		}
	}
	rows, err := QueryRows(ctx, s.DB, "SELECT COUNT(*) AS n FROM _events")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["n"] != int64(0) {
		t.Fatalf("expected empty table, got %v", rows)
	}
}

func TestExecAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatal(err)
	}

	created := time.Date(2024, 5, 1, 12, 30, 0, 250000000, time.UTC)
	pb := s.Dialect.NewParamBuilder()
	sqlStr := "INSERT INTO _events (span_id, trace_id, event_type, source, component, action, created_at) VALUES (" +
		strings.Join([]string{pb.Add("s1"), pb.Add("t1"), pb.Add("system"), pb.Add("storage"), pb.Add("local"), pb.Add("store"), pb.Add(s.Dialect.TimeParam(created))}, ",") + ")"
	n, err := Exec(ctx, s.DB, sqlStr, pb.Params()...)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row affected, got %d", n)
	}

	rows, err := QueryRows(ctx, s.DB, "SELECT span_id, created_at, entity FROM _events WHERE trace_id = ?1", "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["span_id"] != "s1" {
		t.Fatalf("unexpected span_id %v", rows[0]["span_id"])
	}
	if got, ok := rows[0]["created_at"].(time.Time); !ok || !got.Equal(created) {
		t.Fatalf("expected created_at %v, got %#v", created, rows[0]["created_at"])
	}
	if rows[0]["entity"] != nil {
		t.Fatalf("expected NULL entity, got %v", rows[0]["entity"])
	}

	rows, err = QueryRows(ctx, s.DB, "SELECT span_id FROM _events WHERE trace_id = ?1", "missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %v", rows)
	}
}

func TestNewDialect(t *testing.T) {
	if NewDialect("postgres").DriverName() != "pgx" {
		t.Fatal("postgres dialect should use the pgx driver")
	}
	if NewDialect("").Name() != "sqlite" {
		t.Fatal("unknown drivers fall back to sqlite")
	}
}

func TestParamBuilders(t *testing.T) {
	pg := (&PostgresDialect{}).NewParamBuilder()
	if pg.Add("a") != "$1" || pg.Add(2) != "$2" || len(pg.Params()) != 2 {
		t.Fatal("unexpected postgres placeholders")
	}
	lite := (&SQLiteDialect{}).NewParamBuilder()
	if lite.Add("a") != "?1" || lite.Add(2) != "?2" || len(lite.Params()) != 2 {
		t.Fatal("unexpected sqlite placeholders")
	}
}

func TestSQLiteTimeParamSortsLexicographically(t *testing.T) {
	d := &SQLiteDialect{}
	earlier := d.TimeParam(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)).(string)
	later := d.TimeParam(time.Date(2024, 1, 1, 10, 0, 0, 5000, time.UTC)).(string)
	if earlier >= later {
		t.Fatalf("expected %q < %q", earlier, later)
	}

	pb := d.NewParamBuilder()
	if expr := d.OlderThanExpr("created_at", pb, time.Now()); expr != "created_at < ?1" {
		t.Fatalf("unexpected expression %q", expr)
	}
}

func TestPostgresDialect_SyncCommitOff(t *testing.T) {
	if (&PostgresDialect{}).SyncCommitOff() == "" {
		t.Fatal("postgres should disable synchronous commit for event batches")
	}
	if (&SQLiteDialect{}).SyncCommitOff() != "" {
		t.Fatal("sqlite has no synchronous commit setting")
	}
}
