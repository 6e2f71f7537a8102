package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/events"
	"github.com/HSLdevcom/ajoaikadata/internal/ingest"
	"github.com/HSLdevcom/ajoaikadata/internal/metrics"
	"github.com/HSLdevcom/ajoaikadata/internal/station"
)

// Sink batches one record type into a worker's staging table and merges
// it into the canonical target on each flush, giving the pipeline its
// at-least-once-write / effectively-once-result semantics (spec.md §5's
// staging lifecycle). Batching itself reuses the teacher's generic
// size-or-interval Batcher.
type Sink[T any] struct {
	db              *DB
	target          string
	workerID        string
	columns         []string
	conflictColumns []string
	encode          func(T) []any
	batcher         *ingest.Batcher[T]
	log             zerolog.Logger
}

// NewSink ensures the worker's staging table exists and returns a Sink
// that flushes by size (batchSize) or interval, whichever comes first.
func NewSink[T any](ctx context.Context, db *DB, target, workerID string, columns, conflictColumns []string, batchSize int, flushInterval time.Duration, encode func(T) []any, log zerolog.Logger) (*Sink[T], error) {
	if err := db.EnsureStaging(ctx, target, workerID); err != nil {
		return nil, err
	}
	s := &Sink[T]{
		db:              db,
		target:          target,
		workerID:        workerID,
		columns:         columns,
		conflictColumns: conflictColumns,
		encode:          encode,
		log:             log,
	}
	s.batcher = ingest.NewBatcher(batchSize, flushInterval, s.flush)
	return s, nil
}

// Add enqueues one record for the next flush.
func (s *Sink[T]) Add(item T) { s.batcher.Add(item) }

// Flush forces a synchronous drain of any buffered records.
func (s *Sink[T]) Flush() { s.batcher.Flush() }

// Shutdown flushes remaining records, stops the batcher, and drops the
// worker's staging table.
func (s *Sink[T]) Shutdown(ctx context.Context) error {
	s.batcher.Stop()
	return s.db.DropStaging(ctx, s.target, s.workerID)
}

func (s *Sink[T]) flush(items []T) {
	if len(items) == 0 {
		return
	}
	ctx := context.Background()
	rows := make([][]any, len(items))
	for i, item := range items {
		rows[i] = s.encode(item)
	}
	if _, err := s.db.CopyIn(ctx, s.target, s.workerID, s.columns, rows); err != nil {
		s.log.Error().Err(err).Str("target", s.target).Str("worker", s.workerID).Int("rows", len(rows)).Msg("staging copy failed")
		metrics.StagingMergeErrorsTotal.WithLabelValues(s.target).Inc()
		return
	}
	if _, err := s.db.MergeStaging(ctx, s.target, s.workerID, s.columns, s.conflictColumns); err != nil {
		s.log.Error().Err(err).Str("target", s.target).Str("worker", s.workerID).Msg("staging merge failed")
		metrics.StagingMergeErrorsTotal.WithLabelValues(s.target).Inc()
	}
}

var messagesColumns = []string{"tst", "ntp_timestamp", "eke_timestamp", "mqtt_timestamp", "tst_source", "msg_type", "vehicle_id", "message"}
var messagesConflictColumns = []string{"vehicle_id", "eke_timestamp", "msg_type"}

// NewMessagesSink returns a Sink writing decoded EKE messages to the
// messages table.
func NewMessagesSink(ctx context.Context, db *DB, workerID string, batchSize int, flushInterval time.Duration, log zerolog.Logger) (*Sink[*eke.Msg], error) {
	return NewSink(ctx, db, "messages", workerID, messagesColumns, messagesConflictColumns, batchSize, flushInterval, encodeMessage, log)
}

func encodeMessage(msg *eke.Msg) []any {
	body, _ := json.Marshal(messageBody{
		MsgType:      msg.MsgType,
		MsgName:      msg.MsgName,
		MsgVersion:   msg.MsgVersion,
		NtpTimeValid: msg.NtpTimeValid,
		Vehicle:      msg.Vehicle,
		Content:      msg.Content,
		Discard:      msg.Discard,
		Incomplete:   msg.Incomplete,
	})
	return []any{msg.Tst, msg.NtpTimestamp, msg.EkeTimestamp, msg.MqttTimestamp, msg.TstSource, msg.MsgType, msg.Vehicle, body}
}

// messageBody is the shape persisted into messages.message; it keeps
// discard/incomplete in the jsonb payload for forensic analysis per
// spec.md §7.
type messageBody struct {
	MsgType      int    `json:"msg_type"`
	MsgName      string `json:"msg_name"`
	MsgVersion   int    `json:"msg_version"`
	NtpTimeValid bool   `json:"ntp_time_valid"`
	Vehicle      string `json:"vehicle"`
	Content      any    `json:"content"`
	Discard      bool   `json:"discard"`
	Incomplete   bool   `json:"incomplete"`
}

var eventsColumns = []string{"tst", "tst_corrected", "ntp_timestamp", "eke_timestamp", "mqtt_timestamp", "tst_source", "event_type", "vehicle_id", "data"}
var eventsConflictColumns = []string{"vehicle_id", "eke_timestamp", "event_type"}

// NewEventsSink returns a Sink writing detected events to the events
// table.
func NewEventsSink(ctx context.Context, db *DB, workerID string, batchSize int, flushInterval time.Duration, log zerolog.Logger) (*Sink[*events.Event], error) {
	return NewSink(ctx, db, "events", workerID, eventsColumns, eventsConflictColumns, batchSize, flushInterval, encodeEvent, log)
}

func encodeEvent(evt *events.Event) []any {
	body, _ := json.Marshal(evt.Data)
	return []any{evt.Tst, evt.TstCorrected, evt.NtpTimestamp, evt.EkeTimestamp, evt.MqttTimestamp, evt.TstSource, evt.EventType, evt.Vehicle, body}
}

var stationEventsColumns = []string{"tst", "ntp_timestamp", "eke_timestamp", "tst_source", "vehicle_id", "station", "track", "direction", "data"}
var stationEventsConflictColumns = []string{"vehicle_id", "ntp_timestamp", "station"}

// NewStationEventsSink returns a Sink writing completed station visits to
// the stationevents table.
func NewStationEventsSink(ctx context.Context, db *DB, workerID string, batchSize int, flushInterval time.Duration, log zerolog.Logger) (*Sink[*station.StationEvent], error) {
	return NewSink(ctx, db, "stationevents", workerID, stationEventsColumns, stationEventsConflictColumns, batchSize, flushInterval, encodeStationEvent, log)
}

func encodeStationEvent(se *station.StationEvent) []any {
	body, _ := json.Marshal(se.Data)
	// StationEvent has no independently corrected timestamp; tst mirrors
	// ntp_timestamp (the trigger time) with source "ntp", since the
	// aggregator only ever compares ntp_timestamp values (spec.md §4.8).
	return []any{se.NtpTimestamp, se.NtpTimestamp, se.EkeTimestamp, "ntp", se.Vehicle, se.Station, se.Track, se.Direction, body}
}
