package storage

import "context"

// SetRaw writes a single key, bypassing the pair invariant.
func (s *SQLite) SetRaw(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO local_storage (key, value) VALUES (?, ?)`, key, value)
	return err
}
