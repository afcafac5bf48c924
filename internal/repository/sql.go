package repository

import (
    "context"
    "database/sql"
    "sort"
    "strings"
)

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// uintArgs converts ids to driver arguments, prefixed by head.
func uintArgs(ids []uint64, head ...interface{}) []interface{} {
    args := make([]interface{}, 0, len(head)+len(ids))
    args = append(args, head...)
    for _, id := range ids {
        args = append(args, id)
    }
    return args
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
    ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanIDs collects a single uint64 column.
func scanIDs(rows *sql.Rows) ([]uint64, error) {
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

func sortIDs(ids []uint64) {
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
