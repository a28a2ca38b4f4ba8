package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

func execCount(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapError(err, "error executing %q", firstLine(query))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, wrapError(err, "error reading affected rows")
	}
	return rows, nil
}

func selectLevel(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (int64, error) {
	var level int64
	err := sqlx.GetContext(ctx, q, &level, query, args...)
	if err != nil {
		return 0, wrapError(err, "error selecting level")
	}
	return level, nil
}

func selectCount(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, q, &count, query, args...)
	if err != nil {
		return 0, wrapError(err, "error counting rows")
	}
	return count, nil
}

// nullBytes maps a nil slice to SQL NULL, some drivers bind it as an empty blob.
func nullBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

func firstLine(query string) string {
	query = strings.TrimSpace(query)
	if idx := strings.IndexByte(query, '\n'); idx >= 0 {
		query = query[:idx]
	}
	return query
}

// valuesPlaceholders builds "($1, $2), ($3, $4)" style placeholders for
// multi-row inserts.
func valuesPlaceholders(rows int, columns int) string {
	var sql strings.Builder
	argIdx := 0
	for i := 0; i < rows; i++ {
		if i > 0 {
			fmt.Fprint(&sql, ", ")
		}
		fmt.Fprint(&sql, "(")
		for c := 0; c < columns; c++ {
			if c > 0 {
				fmt.Fprint(&sql, ", ")
			}
			fmt.Fprintf(&sql, "$%v", argIdx+1)
			argIdx++
		}
		fmt.Fprint(&sql, ")")
	}
	return sql.String()
}
