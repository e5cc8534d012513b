// Package sqlstore provides SQL implementations of storage ports on top of sqlx.
// SQLite (mattn/go-sqlite3) and PostgreSQL (lib/pq) are supported; queries are
// written with '?' placeholders and rebound for the active driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/artpar/crudgate/core/entity"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config configures the connection pool.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps a sqlx connection pool.
type DB struct {
	*sqlx.DB
	driver string
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	var dsn string
	switch cfg.Driver {
	case DriverSQLite, "sqlite", "":
		cfg.Driver = DriverSQLite
		dsn = sqliteDSN(cfg.DSN)
	case DriverPostgres:
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Driver == DriverSQLite && isMemory(cfg.DSN) {
		// Each connection to :memory: is a separate database.
		cfg.MaxOpenConns = 1
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		pragmas := []string{
			"PRAGMA synchronous = NORMAL",
			"PRAGMA cache_size = -64000", // 64MB
			"PRAGMA temp_store = MEMORY",
		}
		for _, pragma := range pragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("set pragma: %w", err)
			}
		}
	}

	return &DB{DB: db, driver: cfg.Driver}, nil
}

// New wraps an existing *sql.DB, typically a sqlmock connection in tests.
func New(db *sql.DB, driver string) *DB {
	return &DB{DB: sqlx.NewDb(db, driver), driver: driver}
}

// Driver returns the driver name.
func (db *DB) Driver() string {
	return db.driver
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "crudgate.db"
	}
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// Migrate applies pending migrations for the collected entity paths, in order.
// Each path contributes the files <Dir>/<driver>/*.sql sorted by name; a file is
// recorded as "<module>/<entity>/<file>" in schema_migrations and never re-run.
func (db *DB) Migrate(ctx context.Context, paths []entity.Path) ([]string, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	var versions []string
	if err := db.SelectContext(ctx, &versions, "SELECT version FROM schema_migrations"); err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	var done []string
	for _, p := range paths {
		dir := path.Join(p.Dir, db.driver)
		files, err := migrationFiles(p.FS, dir)
		if err != nil {
			return done, fmt.Errorf("entity %s: %w", p.Key(), err)
		}
		for _, name := range files {
			version := p.Key() + "/" + strings.TrimSuffix(name, ".sql")
			if applied[version] {
				continue
			}
			content, err := fs.ReadFile(p.FS, path.Join(dir, name))
			if err != nil {
				return done, fmt.Errorf("read migration %s: %w", version, err)
			}
			if err := db.apply(ctx, version, string(content)); err != nil {
				return done, err
			}
			applied[version] = true
			done = append(done, version)
		}
	}
	return done, nil
}

func (db *DB) apply(ctx context.Context, version, content string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, content); err != nil {
		tx.Rollback()
		return fmt.Errorf("execute migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, db.Rebind("INSERT INTO schema_migrations (version) VALUES (?)"), version); err != nil {
		tx.Rollback()
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}

func migrationFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
