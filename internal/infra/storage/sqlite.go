package storage

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/martiniano/crm-console/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLite persists the session in a local sqlite file.
type SQLite struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type kvRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating session dir : %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("connecting to session db : %w", err)
	}
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting dialect for migrations : %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migration : %w", err)
	}

	return &SQLite{db: db, logger: logger}, nil
}

// Close terminates the database connection.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing session db : %w", err)
	}
	return nil
}

// Load returns the stored credential, or nil when none is stored. A
// half-present or corrupt pair is cleared and reported as absent.
func (s *SQLite) Load(ctx context.Context) (*domain.Credential, error) {
	var rows []kvRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT key, value FROM local_storage WHERE key IN (?, ?)`, KeyToken, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("loading session : %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	kv := make(map[string]string, len(rows))
	for _, r := range rows {
		kv[r.Key] = r.Value
	}

	cred, ok := decodePair(kv)
	if !ok {
		s.logger.Warn("discarding incomplete persisted session", zap.Int("keys", len(rows)))
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return cred, nil
}

// Save writes both keys in one transaction.
func (s *SQLite) Save(ctx context.Context, cred domain.Credential) error {
	pair, err := encodePair(cred)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save : %w", err)
	}
	defer tx.Rollback()

	for _, k := range []string{KeyToken, KeyUser} {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			k, pair[k])
		if err != nil {
			return fmt.Errorf("saving %s : %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save : %w", err)
	}
	return nil
}

// Clear removes both keys in one statement.
func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM local_storage WHERE key IN (?, ?)`, KeyToken, KeyUser)
	if err != nil {
		return fmt.Errorf("clearing session : %w", err)
	}
	return nil
}
