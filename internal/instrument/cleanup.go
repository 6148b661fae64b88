package instrument

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"upload-service/internal/store"
)

// CleanupOldEvents deletes events older than retentionDays from the _events table.
func CleanupOldEvents(ctx context.Context, db *sql.DB, dialect store.Dialect, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	pb := dialect.NewParamBuilder()
	whereExpr := dialect.OlderThanExpr("created_at", pb, time.Now().UTC().AddDate(0, 0, -retentionDays))
	n, err := store.Exec(ctx, db, fmt.Sprintf("DELETE FROM _events WHERE %s", whereExpr), pb.Params()...)
	if err != nil {
		return 0, fmt.Errorf("event cleanup: %w", err)
	}
	if n > 0 {
		slog.Info("event cleanup", "deleted", n, "retention_days", retentionDays)
	}
	return n, nil
}

// StartCleanup runs CleanupOldEvents once immediately and then every interval
// until ctx is cancelled.
func StartCleanup(ctx context.Context, db *sql.DB, dialect store.Dialect, retentionDays int, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := CleanupOldEvents(ctx, db, dialect, retentionDays); err != nil {
				slog.Error("event cleanup", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
