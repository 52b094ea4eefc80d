package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Options selects a dialect and its connection parameters.  Path is used by
// sqlite3 only; the network fields by mysql and postgres.
type Options struct {
	Dialect Dialect
	User    string
	Pass    string
	Host    string
	Port    string
	Name    string
	Path    string
}

// Open connects to the configured database and verifies the connection.
func Open(opts Options) (*sql.DB, error) {
	switch opts.Dialect {
	case MySQL:
		return openMySQL(opts)
	case Postgres:
		return openPostgres(opts)
	case SQLite:
		return OpenSQLite(opts.Path)
	}
	return nil, fmt.Errorf("unsupported dialect %q", opts.Dialect)
}

func openMySQL(o Options) (*sql.DB, error) {
	auth := o.User
	if o.Pass != "" {
		auth = fmt.Sprintf("%s:%s", o.User, o.Pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, o.Host, o.Port, o.Name)
	return openPool("mysql", dsn)
}

func openPostgres(o Options) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&timezone=UTC",
		o.User, o.Pass, o.Host, o.Port, o.Name)
	return openPool("pgx", dsn)
}

func openPool(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (creating if needed) a SQLite database file.  SQLite has a
// single writer, so the pool is pinned to one connection and transactions
// run one after another.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	return db, nil
}
