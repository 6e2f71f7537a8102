package keyed

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/events"
	"github.com/HSLdevcom/ajoaikadata/internal/metrics"
	"github.com/HSLdevcom/ajoaikadata/internal/registry"
	"github.com/HSLdevcom/ajoaikadata/internal/station"
)

// eventWorker owns one vehicle's event-detection and station-aggregation
// state only — the back half of the twelve-stage pipeline, run on its
// own by the eventcreator process role against messages a contentparser
// has already decoded, deduped, timestamp-validated, reordered, and
// balise-combined. It never sees a raw row.
type eventWorker struct {
	vehicle  string
	in       chan *eke.Msg
	detector *events.Detector
	station  *station.Aggregator
	sinks    Sinks
	log      zerolog.Logger
}

func newEventWorker(vehicle string, reg *registry.Registry, sinks Sinks, queueSize int, log zerolog.Logger) *eventWorker {
	wlog := log.With().Str("vehicle_id", vehicle).Logger()
	return &eventWorker{
		vehicle:  vehicle,
		in:       make(chan *eke.Msg, queueSize),
		detector: events.NewDetector(reg, wlog),
		station:  station.NewAggregator(wlog),
		sinks:    sinks,
		log:      wlog,
	}
}

func (w *eventWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.in:
			if !ok {
				return
			}
			w.process(msg)
		}
	}
}

// process passes msg through to the messages sink (the eventcreator role
// republishes what it received, giving pgsink a single input stream that
// carries messages, events, and station events alike), then runs
// detection and station aggregation.
func (w *eventWorker) process(msg *eke.Msg) {
	if w.sinks.Messages != nil {
		w.sinks.Messages.Add(msg)
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

func (w *eventWorker) queued() int { return len(w.in) }

// EventRuntime is the key-partitioned dispatcher for the event-detection
// half of the pipeline. It mirrors Runtime's lazy per-vehicle worker
// creation and drain-on-shutdown behavior, but its workers consume
// already content-parsed messages instead of raw rows.
type EventRuntime struct {
	reg       *registry.Registry
	sinks     Sinks
	queueSize int
	log       zerolog.Logger

	workers *xsync.Map[string, *eventWorker]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	createMu sync.Mutex
}

// NewEventRuntime returns an EventRuntime ready to accept messages.
func NewEventRuntime(reg *registry.Registry, sinks Sinks, log zerolog.Logger) *EventRuntime {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventRuntime{
		reg:       reg,
		sinks:     sinks,
		queueSize: defaultQueueSize,
		log:       log,
		workers:   xsync.NewMap[string, *eventWorker](),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit routes msg to its vehicle's event worker, creating the worker on
// first sight of the key.
func (rt *EventRuntime) Submit(msg *eke.Msg) error {
	w := rt.workerFor(msg.Vehicle)
	select {
	case w.in <- msg:
		return nil
	case <-rt.ctx.Done():
		return rt.ctx.Err()
	}
}

func (rt *EventRuntime) workerFor(vehicle string) *eventWorker {
	if w, ok := rt.workers.Load(vehicle); ok {
		return w
	}
	rt.createMu.Lock()
	defer rt.createMu.Unlock()
	if w, ok := rt.workers.Load(vehicle); ok {
		return w
	}
	w := newEventWorker(vehicle, rt.reg, rt.sinks, rt.queueSize, rt.log)
	rt.workers.Store(vehicle, w)
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		w.run(rt.ctx)
	}()
	return w
}

// ActiveVehicleKeys implements metrics.RuntimeStats.
func (rt *EventRuntime) ActiveVehicleKeys() int { return rt.workers.Size() }

// QueuedRecords implements metrics.RuntimeStats.
func (rt *EventRuntime) QueuedRecords() int {
	total := 0
	rt.workers.Range(func(_ string, w *eventWorker) bool {
		total += w.queued()
		return true
	})
	return total
}

// Shutdown closes every worker's queue, waits for it to drain, then
// cancels the shared context. See Runtime.Shutdown for why the ordering
// matters.
func (rt *EventRuntime) Shutdown() {
	rt.workers.Range(func(_ string, w *eventWorker) bool {
		close(w.in)
		return true
	})
	rt.wg.Wait()
	rt.cancel()
}
