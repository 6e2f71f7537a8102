package keyed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/balise"
	"github.com/HSLdevcom/ajoaikadata/internal/dedup"
	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/events"
	"github.com/HSLdevcom/ajoaikadata/internal/metrics"
	"github.com/HSLdevcom/ajoaikadata/internal/registry"
	"github.com/HSLdevcom/ajoaikadata/internal/reorder"
	"github.com/HSLdevcom/ajoaikadata/internal/station"
	"github.com/HSLdevcom/ajoaikadata/internal/tstvalidate"
)

// MessageSink, EventSink, and StationEventSink are the three narrow
// interfaces a worker writes records through. *database.Sink[T] satisfies
// all three; tests substitute recording fakes.
type MessageSink interface{ Add(*eke.Msg) }
type EventSink interface{ Add(*events.Event) }
type StationEventSink interface{ Add(*station.StationEvent) }

// Sinks bundles the three record sinks a worker writes to.
type Sinks struct {
	Messages      MessageSink
	Events        EventSink
	StationEvents StationEventSink
}

// worker owns one vehicle key's full pipeline state exclusively. Every
// field below is touched only from the goroutine running (*worker).run,
// giving the twelve-stage pipeline its single-threaded-per-key guarantee
// without any locking inside the stages themselves.
type worker struct {
	vehicle string
	in      chan eke.RawRow

	dedup     *dedup.Cache
	tst       *tstvalidate.Validator
	reorder   *reorder.State
	parts     *balise.PartsState
	direction *balise.DirectionState
	detector  *events.Detector
	station   *station.Aggregator

	sinks Sinks
	log   zerolog.Logger
}

func newWorker(vehicle string, reg *registry.Registry, sinks Sinks, queueSize int, log zerolog.Logger) (*worker, error) {
	cache, err := dedup.NewCache(dedup.Capacity)
	if err != nil {
		return nil, err
	}
	wlog := log.With().Str("vehicle_id", vehicle).Logger()
	return &worker{
		vehicle:   vehicle,
		in:        make(chan eke.RawRow, queueSize),
		dedup:     cache,
		tst:       tstvalidate.NewValidator(),
		reorder:   reorder.NewState(),
		parts:     balise.NewPartsState(wlog),
		direction: balise.NewDirectionState(wlog),
		detector:  events.NewDetector(reg, wlog),
		station:   station.NewAggregator(wlog),
		sinks:     sinks,
		log:       wlog,
	}, nil
}

// run drains in until it is closed or ctx is cancelled, running every row
// through the full pipeline to completion before picking up the next one.
func (w *worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case row, ok := <-w.in:
			if !ok {
				return
			}
			w.process(row)
		}
	}
}

// process drives one raw row through decode, dedup, timestamp
// validation, reorder, balise reassembly/direction, the messages sink,
// event detection, the events sink, station aggregation, and the
// station-events sink, in that order (spec.md §2).
func (w *worker) process(row eke.RawRow) {
	msg, err := eke.Decode(row)
	if err != nil {
		metrics.MessagesDecodeErrorsTotal.Inc()
		w.log.Warn().Err(err).Str("topic", row.MqttTopic).Msg("decode failed")
		return
	}
	if msg == nil {
		return // connection-status row, not telemetry
	}
	metrics.MessagesDecodedTotal.WithLabelValues(msg.MsgName).Inc()

	if w.dedup.Admit(msg) {
		metrics.MessagesDedupedTotal.Inc()
		return
	}

	w.tst.Apply(msg)

	for _, released := range w.reorder.Process(msg) {
		w.processReleased(released)
	}
}

func (w *worker) processReleased(msg *eke.Msg) {
	if msg.Discard {
		metrics.MessagesDiscardedTotal.Inc()
	}

	env := New(msg, sourceRef(msg))
	if msg.MsgType == 5 {
		combined := w.parts.Combine(env)
		if combined == nil {
			return // awaiting the telegram's other half
		}
		resolved := w.direction.Resolve(*combined)
		if resolved == nil {
			return // awaiting the group's direction partner
		}
		msg = resolved.Data
	}
	if msg.Incomplete {
		metrics.MessagesIncompleteTotal.Inc()
	}

	if w.sinks.Messages != nil {
		w.sinks.Messages.Add(msg)
	}

	if w.sinks.Events == nil && w.sinks.StationEvents == nil {
		// Nobody downstream wants detected events (the contentparser role
		// wires only a messages sink): skip detection rather than
		// accumulate station-aggregator state that is never read.
		return
	}

	evt := w.detector.Process(msg)
	if evt == nil {
		return
	}
	metrics.EventsEmittedTotal.WithLabelValues(evt.EventType).Inc()
	if w.sinks.Events != nil {
		w.sinks.Events.Add(evt)
	}

	se := w.station.Process(evt)
	if se == nil {
		return
	}
	metrics.StationEventsEmittedTotal.Inc()
	if w.sinks.StationEvents != nil {
		w.sinks.StationEvents.Add(se)
	}
}

// queued reports how many rows are buffered but not yet processed.
func (w *worker) queued() int {
	return len(w.in)
}

// sourceRef identifies the raw row a message was decoded from, for the
// balise parts combiner's and direction resolver's SourceRefs folding.
func sourceRef(msg *eke.Msg) string {
	return fmt.Sprintf("%s@%d", msg.Vehicle, msg.MqttTimestamp.UnixNano())
}
