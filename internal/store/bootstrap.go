package store

import (
	"context"
	"fmt"
)

// Bootstrap creates the _events table and its indexes if they do not exist.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.EventsTableSQL()); err != nil {
		return fmt.Errorf("bootstrap %s events table: %w", s.Dialect.Name(), err)
	}
	return nil
}
