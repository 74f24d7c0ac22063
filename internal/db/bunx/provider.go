// Package bunx opens the bun database handle shared by every repository.
package bunx

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

// Driver names the backend a DSN selects.
type Driver string

const (
	Postgres Driver = "postgres"
	SQLite   Driver = "sqlite"
)

// Postgres pool bounds; the platform runs a handful of request workers
// plus the background queue against one database.
const (
	pgMaxOpenConns = 10
	pgMaxIdleConns = 10
)

var pgSchemes = []string{"postgres://", "postgresql://", "unix://"}

var sqlitePragmas = []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL"}

// DriverFor picks the driver for dsn. Postgres URLs (including the pgdriver
// unix:// socket form) select Postgres; anything else is a SQLite path.
func DriverFor(dsn string) Driver {
	for _, scheme := range pgSchemes {
		if strings.HasPrefix(dsn, scheme) {
			return Postgres
		}
	}
	return SQLite
}

// Open connects to dsn and verifies the connection with a ping.
func Open(ctx context.Context, dsn string) (*bun.DB, error) {
	var (
		db  *bun.DB
		err error
	)
	switch DriverFor(dsn) {
	case Postgres:
		db = openPostgres(dsn)
	default:
		db, err = openSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", DriverFor(dsn), err)
	}
	return db, nil
}

func openPostgres(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	sqldb.SetMaxOpenConns(pgMaxOpenConns)
	sqldb.SetMaxIdleConns(pgMaxIdleConns)
	return bun.NewDB(sqldb, pgdialect.New())
}

func openSQLite(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one connection: a single writer, and :memory: stays one database
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return db, nil
}

// Ping backs the detailed health check.
func Ping(ctx context.Context, db *bun.DB) bool {
	var one int
	return db.NewRaw("SELECT 1").Scan(ctx, &one) == nil
}

// Close tolerates a nil handle.
func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
