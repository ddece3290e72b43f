package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/fedora-infra/orphanstats/schema"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// newMigrator builds a migrate instance bound to an open connection.
func newMigrator(db *sql.DB, backend schema.DatabaseBackend) (*migrate.Migrate, error) {
	var driver database.Driver
	var err error

	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db, &mysql.Config{})
	case schema.PostgreSQLBackend:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	migrationFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "orphanstats", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// migrateUp brings the schema to the latest version. Called on every Open,
// so schema creation is idempotent.
func migrateUp(db *sql.DB, backend schema.DatabaseBackend) error {
	m, err := newMigrator(db, backend)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to migrate event store schema: %w", err)
	}
	return nil
}

// Migrate moves the schema to targetVersion.
// - targetVersion < 0 migrates to the latest version.
// - targetVersion == 0 rolls everything back.
// - targetVersion > 0 migrates to that version.
func Migrate(backend schema.DatabaseBackend, connStr string, targetVersion int) error {
	db, err := openDB(backend, connStr)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	m, err := newMigrator(db, backend)
	if err != nil {
		return err
	}

	currentVersion, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in a dirty state at version %d; fix manually or force a version", currentVersion)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to migrate event store schema: %w", err)
	}
	return nil
}

// Secondary indexes are created outside golang-migrate because DROP INDEX
// syntax differs across backends while CREATE INDEX does not; creation is
// duplicate-tolerant so repeat opens are no-ops.
var storeIndexes = []struct {
	name    string
	table   string
	columns string
}{
	{"ix_commits_bucket", schema.TableCommits, "year, month"},
	{"ix_commits_timestamp", schema.TableCommits, "timestamp"},
	{"ix_commits_actor", schema.TableCommits, "actor"},
	{"ix_orphaned_bucket", schema.TableOrphaned, "year, month"},
	{"ix_orphaned_timestamp", schema.TableOrphaned, "timestamp"},
	{"ix_orphaned_package", schema.TableOrphaned, "package"},
	{"ix_adopted_bucket", schema.TableAdopted, "year, month"},
	{"ix_adopted_timestamp", schema.TableAdopted, "timestamp"},
	{"ix_retired_package", schema.TableRetired, "package"},
}

func (s *Store) ensureIndexes() error {
	for _, ix := range storeIndexes {
		var query string
		if s.backend == schema.MySQLBackend {
			// MySQL has no CREATE INDEX IF NOT EXISTS; the duplicate-name
			// error (1061) on repeat opens is swallowed below.
			query = fmt.Sprintf("CREATE INDEX %s ON %s (%s)", ix.name, ix.table, ix.columns)
		} else {
			query = fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", ix.name, ix.table, ix.columns)
		}
		if _, err := s.db.Exec(query); err != nil {
			if s.backend == schema.MySQLBackend && isDuplicateIndexErr(err) {
				continue
			}
			return fmt.Errorf("failed to create index %s: %w", ix.name, err)
		}
	}
	return nil
}

func isDuplicateIndexErr(err error) bool {
	var mysqlErr *gomysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1061
}
