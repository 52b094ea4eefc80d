package repository

import (
    "database/sql"
    "time"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
    Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
    return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
    if !t.Valid {
        return nil
    }
    v := t.Time.UTC()
    return &v
}

// pageBounds normalises paging input: page starts at 1, size is capped.
func pageBounds(page, size int) (limit, offset int) {
    if page < 1 {
        page = 1
    }
    if size < 1 {
        size = 10
    }
    if size > 100 {
        size = 100
    }
    return size, (page - 1) * size
}

func inPlaceholders(n int) string {
    if n <= 0 {
        return ""
    }
    b := make([]byte, 0, n*2)
    for i := 0; i < n; i++ {
        if i > 0 {
            b = append(b, ',')
        }
        b = append(b, '?')
    }
    return string(b)
}
