package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// stagingTable is the fully-qualified staging.<target>-<worker> table
// used to batch one worker's writes to one sink table before merging.
func stagingTable(target, workerID string) string {
	return fmt.Sprintf("%s-%s", target, workerID)
}

// EnsureStaging creates the staging schema (if absent) and a
// staging.<target>-<worker_id> table shaped like target, ready for
// CopyIn. Safe to call repeatedly.
func (db *DB) EnsureStaging(ctx context.Context, target, workerID string) error {
	if _, err := db.Pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS staging`); err != nil {
		return fmt.Errorf("creating staging schema: %w", err)
	}

	ident := pgx.Identifier{"staging", stagingTable(target, workerID)}
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (LIKE %s INCLUDING DEFAULTS)`,
		ident.Sanitize(), pgx.Identifier{target}.Sanitize())
	if _, err := db.Pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("creating staging table for %s/%s: %w", target, workerID, err)
	}
	return nil
}

// CopyIn bulk-loads rows into the worker's staging table via CopyFrom.
func (db *DB) CopyIn(ctx context.Context, target, workerID string, columns []string, rows [][]any) (int64, error) {
	return db.Pool.CopyFrom(ctx,
		pgx.Identifier{"staging", stagingTable(target, workerID)},
		columns,
		pgx.CopyFromRows(rows),
	)
}

// MergeStaging moves the worker's staging rows into the canonical target
// table via INSERT ... ON CONFLICT DO NOTHING, keyed on conflictColumns
// (target's primary key), then truncates staging so the next batch starts
// clean. This is what gives the pipeline its effectively-once semantics:
// re-merging the same staged rows after a crash is a no-op.
func (db *DB) MergeStaging(ctx context.Context, target, workerID string, columns, conflictColumns []string) (int64, error) {
	stagingIdent := pgx.Identifier{"staging", stagingTable(target, workerID)}.Sanitize()
	targetIdent := pgx.Identifier{target}.Sanitize()

	colList := identifierList(columns)
	conflictList := identifierList(conflictColumns)

	sql := fmt.Sprintf(
		`INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO NOTHING`,
		targetIdent, colList, colList, stagingIdent, conflictList,
	)
	tag, err := db.Pool.Exec(ctx, sql)
	if err != nil {
		return 0, fmt.Errorf("merging staging for %s/%s: %w", target, workerID, err)
	}

	if _, err := db.Pool.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, stagingIdent)); err != nil {
		return tag.RowsAffected(), fmt.Errorf("truncating staging for %s/%s: %w", target, workerID, err)
	}
	return tag.RowsAffected(), nil
}

// DropStaging drops the worker's staging table, called at shutdown.
func (db *DB) DropStaging(ctx context.Context, target, workerID string) error {
	ident := pgx.Identifier{"staging", stagingTable(target, workerID)}.Sanitize()
	_, err := db.Pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, ident))
	return err
}

func identifierList(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += pgx.Identifier{n}.Sanitize()
	}
	return out
}
