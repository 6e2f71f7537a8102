// stagingcheck inspects and repairs orphaned staging.<target>-<worker>
// tables: the ones a pgsink process leaves behind when it is killed
// before its own Shutdown can run DropStaging. Replaces the teacher's
// cmd/dbcheck, which repaired trunk-recorder's duplicate/unresolved
// call rows — a domain this pipeline has no equivalent of.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	pool, err := pgxpool.New(context.Background(), os.Getenv("POSTGRES_CONN_STR"))
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	ctx := context.Background()

	if len(os.Args) > 1 && os.Args[1] == "sweep" {
		apply := len(os.Args) > 2 && os.Args[2] == "apply"
		sweepOrphanedStaging(ctx, pool, apply)
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "drop" {
		if len(os.Args) < 3 {
			fmt.Println("usage: stagingcheck drop <staging-table-name>")
			os.Exit(1)
		}
		dropStagingTable(ctx, pool, os.Args[2])
		return
	}

	// Default: list every staging table with its target/worker split and
	// row count, so an operator can tell a table mid-flush apart from one
	// genuinely abandoned by a dead worker.
	listStagingTables(ctx, pool)
}

type stagingTable struct {
	name     string
	target   string
	workerID string
	rows     int64
}

func listStagingTables(ctx context.Context, pool *pgxpool.Pool) {
	tables, err := queryStagingTables(ctx, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listing staging tables: %v\n", err)
		os.Exit(1)
	}
	if len(tables) == 0 {
		fmt.Println("no staging tables present")
		return
	}
	fmt.Println("Target          Worker                    Rows")
	fmt.Println("──────────────────────────────────────────────")
	for _, t := range tables {
		fmt.Printf("%-15s %-25s %d\n", t.target, t.workerID, t.rows)
	}
}

// sweepOrphanedStaging merges every staging table's rows into its
// canonical target (the same upsert MergeStaging does at a live
// worker's flush interval) and drops the staging table once it's
// empty. dry-run by default; pass "apply" to actually execute.
func sweepOrphanedStaging(ctx context.Context, pool *pgxpool.Pool, apply bool) {
	tables, err := queryStagingTables(ctx, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listing staging tables: %v\n", err)
		os.Exit(1)
	}
	if len(tables) == 0 {
		fmt.Println("no staging tables to sweep")
		return
	}

	for _, t := range tables {
		cols, ok := targetColumns[t.target]
		if !ok {
			fmt.Printf("skip %s-%s: unknown target table %q\n", t.target, t.workerID, t.target)
			continue
		}
		if !apply {
			fmt.Printf("[dry-run] would merge %d row(s) from staging.%q into %s, then drop it\n", t.rows, t.name, t.target)
			continue
		}

		colList := identifierList(cols)
		mergeSQL := fmt.Sprintf(
			`INSERT INTO %s (%s) SELECT %s FROM staging.%s ON CONFLICT DO NOTHING`,
			t.target, colList, colList, pgxQuote(t.name),
		)
		tag, err := pool.Exec(ctx, mergeSQL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "merging staging.%s into %s: %v\n", t.name, t.target, err)
			continue
		}
		if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE staging.%s`, pgxQuote(t.name))); err != nil {
			fmt.Fprintf(os.Stderr, "dropping staging.%s: %v\n", t.name, err)
			continue
		}
		fmt.Printf("merged %d row(s) from staging.%s into %s and dropped it\n", tag.RowsAffected(), t.name, t.target)
	}
}

func dropStagingTable(ctx context.Context, pool *pgxpool.Pool, name string) {
	if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS staging.%s`, pgxQuote(name))); err != nil {
		fmt.Fprintf(os.Stderr, "dropping staging.%s: %v\n", name, err)
		os.Exit(1)
	}
	fmt.Printf("dropped staging.%s\n", name)
}

func queryStagingTables(ctx context.Context, pool *pgxpool.Pool) ([]stagingTable, error) {
	rows, err := pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'staging'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}

	var out []stagingTable
	for _, n := range names {
		target, workerID := splitStagingName(n)
		var count int64
		if err := pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM staging.%s`, pgxQuote(n))).Scan(&count); err != nil {
			return nil, fmt.Errorf("counting staging.%s: %w", n, err)
		}
		out = append(out, stagingTable{name: n, target: target, workerID: workerID, rows: count})
	}
	return out, nil
}

// splitStagingName undoes stagingTable's "<target>-<worker>" naming.
// Target names never contain a dash, so the first dash is the split
// point.
func splitStagingName(name string) (target, workerID string) {
	i := strings.Index(name, "-")
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

var targetColumns = map[string][]string{
	"messages":      {"tst", "ntp_timestamp", "eke_timestamp", "mqtt_timestamp", "tst_source", "msg_type", "vehicle_id", "message"},
	"events":        {"tst", "tst_corrected", "ntp_timestamp", "eke_timestamp", "mqtt_timestamp", "tst_source", "event_type", "vehicle_id", "data"},
	"stationevents": {"tst", "ntp_timestamp", "eke_timestamp", "tst_source", "vehicle_id", "station", "track", "direction", "data"},
}

func identifierList(names []string) string {
	return strings.Join(names, ", ")
}

// pgxQuote wraps an identifier in double quotes, escaping any embedded
// quote. Staging table names come from information_schema itself, not
// user input, but every name is built from a target/worker pair that
// includes an operator-supplied PULSAR_CLIENT_NAME, so this still
// quotes defensively rather than trusting it's always safe to inline.
func pgxQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
