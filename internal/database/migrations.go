package database

import (
	"context"
	"fmt"
	"strings"
)

// migration defines a single idempotent schema migration, applied after
// EnsureSchema has created the base tables.
type migration struct {
	name  string
	sql   string
	check string // query that returns true if the migration is already applied
}

// migrations is the ordered list of schema migrations to apply on top of
// baseSchema. Each must be idempotent (use IF NOT EXISTS, IF EXISTS, etc.).
var migrations = []migration{
	{
		name:  "add messages discard/incomplete flags",
		sql:   `ALTER TABLE messages ADD COLUMN IF NOT EXISTS discard boolean NOT NULL DEFAULT false, ADD COLUMN IF NOT EXISTS incomplete boolean NOT NULL DEFAULT false`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'messages' AND column_name = 'discard')`,
	},
	{
		name:  "add events vehicle_id time index",
		sql:   `CREATE INDEX IF NOT EXISTS idx_events_vehicle_tst ON events (vehicle_id, tst)`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_events_vehicle_tst')`,
	},
	{
		name:  "add stationevents vehicle_id time index",
		sql:   `CREATE INDEX IF NOT EXISTS idx_stationevents_vehicle_ntp ON stationevents (vehicle_id, ntp_timestamp)`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_stationevents_vehicle_ntp')`,
	},
}

// Migrate applies EnsureSchema's base tables, then runs all pending
// migrations. For each migration, it first checks whether the change is
// already present. If an apply fails (e.g. insufficient privileges), the
// error is returned — callers should treat this as fatal since the
// application's queries depend on these columns/indexes existing.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring base schema: %w", err)
	}

	var pending []migration
	for _, m := range migrations {
		if m.check != "" {
			var exists bool
			if err := db.Pool.QueryRow(ctx, m.check).Scan(&exists); err == nil && exists {
				continue
			}
		}
		pending = append(pending, m)
	}

	if len(pending) == 0 {
		return nil
	}

	applied := 0
	for _, m := range pending {
		if _, err := db.Pool.Exec(ctx, m.sql); err != nil {
			return &MigrationError{
				failed:  m,
				pending: pending[applied:],
				err:     err,
			}
		}
		db.log.Info().Str("migration", m.name).Msg("schema migration applied")
		applied++
	}
	db.log.Info().Int("applied", applied).Msg("schema migrations complete")
	return nil
}

// MigrationError is returned when a migration fails. It includes the SQL
// needed to apply all remaining migrations manually.
type MigrationError struct {
	failed  migration
	pending []migration
	err     error
}

func (e *MigrationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "migration %q failed: %v\n\n", e.failed.name, e.err)
	b.WriteString("Run the following SQL as a database superuser to fix this:\n\n")
	for _, m := range e.pending {
		fmt.Fprintf(&b, "  %s;\n", m.sql)
	}
	b.WriteString("\nThen restart ajoaikadata.")
	return b.String()
}

func (e *MigrationError) Unwrap() error {
	return e.err
}
