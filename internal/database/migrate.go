package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Schema returns the DDL for the dialect.
func Schema(d Dialect) (string, error) {
	b, err := schemaFS.ReadFile("schema/" + string(d) + ".sql")
	if err != nil {
		return "", fmt.Errorf("no schema for dialect %q: %w", d, err)
	}
	return string(b), nil
}

// Migrate applies the embedded schema.  Every statement is idempotent, so it
// is safe to run on each start.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	ddl, err := Schema(d)
	if err != nil {
		return err
	}
	for _, stmt := range splitStatements(ddl) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// splitStatements breaks a DDL file on ';'.  The schema files contain no
// string literals with semicolons.
func splitStatements(ddl string) []string {
	parts := strings.Split(ddl, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		var lines []string
		for _, l := range strings.Split(p, "\n") {
			if strings.HasPrefix(strings.TrimSpace(l), "--") {
				continue
			}
			lines = append(lines, l)
		}
		if s := strings.TrimSpace(strings.Join(lines, "\n")); s != "" {
			out = append(out, s)
		}
	}
	return out
}
