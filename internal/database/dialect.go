package database

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Dialect names one of the supported SQL backends.  Repositories write their
// queries with '?' placeholders and portable SQL, and ask the dialect for the
// handful of constructs that differ.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// ParseDialect accepts the DB_DRIVER spellings used in configuration.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql", "":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", errors.New("unknown database driver: " + s)
}

// Rebind rewrites '?' placeholders into the dialect's bind syntax.
func (d Dialect) Rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// ForUpdate is the row-locking suffix for a SELECT.  SQLite has no row locks;
// its single connection already serialises transactions.
func (d Dialect) ForUpdate() string {
	if d == SQLite {
		return ""
	}
	return " FOR UPDATE"
}

// InsertIgnore returns an INSERT prefix and suffix that skip rows colliding
// with a unique key.
func (d Dialect) InsertIgnore() (prefix, suffix string) {
	if d == MySQL {
		return "INSERT IGNORE INTO", ""
	}
	return "INSERT INTO", " ON CONFLICT DO NOTHING"
}

// TxOptions are the options for admission transactions.  Read committed lets
// each statement after a lock see rows committed by the previous lock holder.
func (d Dialect) TxOptions() *sql.TxOptions {
	if d == SQLite {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
}

// IsDuplicateKey reports whether err is a unique-constraint violation.
func (d Dialect) IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
