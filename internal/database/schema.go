package database

import "context"

// baseSchema creates the three canonical sink tables if they do not
// already exist. Columns follow spec.md §6's mapper tuples exactly.
const baseSchema = `
CREATE TABLE IF NOT EXISTS messages (
	tst            timestamptz NOT NULL,
	ntp_timestamp  timestamptz NOT NULL,
	eke_timestamp  timestamptz NOT NULL,
	mqtt_timestamp timestamptz NOT NULL,
	tst_source     text NOT NULL,
	msg_type       int NOT NULL,
	vehicle_id     text NOT NULL,
	message        jsonb NOT NULL,
	PRIMARY KEY (vehicle_id, eke_timestamp, msg_type)
);

CREATE TABLE IF NOT EXISTS events (
	tst            timestamptz NOT NULL,
	tst_corrected  timestamptz NOT NULL,
	ntp_timestamp  timestamptz NOT NULL,
	eke_timestamp  timestamptz NOT NULL,
	mqtt_timestamp timestamptz NOT NULL,
	tst_source     text NOT NULL,
	event_type     text NOT NULL,
	vehicle_id     text NOT NULL,
	data           jsonb NOT NULL,
	PRIMARY KEY (vehicle_id, eke_timestamp, event_type)
);

CREATE TABLE IF NOT EXISTS stationevents (
	tst           timestamptz NOT NULL,
	ntp_timestamp timestamptz NOT NULL,
	eke_timestamp timestamptz NOT NULL,
	tst_source    text NOT NULL,
	vehicle_id    text NOT NULL,
	station       text NOT NULL,
	track         int NOT NULL,
	direction     text,
	data          jsonb NOT NULL,
	PRIMARY KEY (vehicle_id, ntp_timestamp, station)
);
`

// EnsureSchema creates the canonical tables, idempotently.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, baseSchema)
	return err
}
