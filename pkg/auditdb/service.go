// Package auditdb keeps the access history of the lock.
// The access poller writes scans and summaries, the lock monitor writes lock
// events. Rows are history only and are never read back to restore state.
package auditdb

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/NotCoffee418/dbmigrator"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Open opens the database at path. Both binaries may write to the same file,
// so writers wait on each other instead of failing with SQLITE_BUSY.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}
	return &Store{db: db, runID: uuid.New()}, nil
}

// Migrate applies pending migrations.
func (s *Store) Migrate() {
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		s.db,
		migrationFS,
		"migrations",
	)
}

// InitializeDatabase opens the database at path and migrates it.
func InitializeDatabase(path string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	s.Migrate()
	log.Info().Str("path", path).Str("run_id", s.runID.String()).Msg("Audit database ready")
	return s, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) RunID() uuid.UUID {
	return s.runID
}

func (s *Store) Close() error {
	return s.db.Close()
}
