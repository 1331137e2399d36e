package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// ReplaceRows deletes every row of schema.table and COPYs rows in, in one
// transaction. Readers see either the old or the new contents.
func ReplaceRows(ctx context.Context, pool Pool, schema, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: replace: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ident := pgx.Identifier{schema, table}
	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", ident.Sanitize())); err != nil {
		return 0, eris.Wrapf(err, "db: replace: clear %s.%s", schema, table)
	}

	var n int64
	if len(rows) > 0 {
		n, err = tx.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return 0, eris.Wrapf(err, "db: COPY INTO %s.%s", schema, table)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: replace: commit tx")
	}
	return n, nil
}
