// Package station folds the per-vehicle event stream into one record per
// station visit, spanning the arrival and departure (or cabin-change)
// that bracket it.
package station

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/events"
)

// VehicleState accumulates persistent vehicle attributes (train_no,
// vehicle_count, all_vehicles, active_cabin) as composition-change events
// flow through, independent of any single station visit.
type VehicleState map[string]any

func (v VehicleState) clone() VehicleState {
	out := make(VehicleState, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

func (v VehicleState) merge(data map[string]any) {
	for k, val := range data {
		v[k] = val
	}
}

// StationEvent is one completed (or forcibly closed) station visit.
type StationEvent struct {
	Vehicle      string
	NtpTimestamp time.Time
	EkeTimestamp time.Time
	Station      string
	Track        int
	Direction    string
	Data         map[string]any
}

// visitCache is the in-progress visit for one vehicle. Nil pointers mean
// "not yet known", matching the Python cache's None-valued dict entries.
type visitCache struct {
	station             *string
	track               *int
	direction           *string
	timeArrived         *time.Time
	timeDoorsLastClosed *time.Time
	timeDeparted        *time.Time
	arrivalVehicleState VehicleState
}

// Aggregator holds one vehicle's accumulated attributes and in-progress
// visit state.
type Aggregator struct {
	vehicle VehicleState
	cache   visitCache
	log     zerolog.Logger
}

// NewAggregator returns an aggregator for one vehicle with no visit in
// progress.
func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{vehicle: make(VehicleState), log: log}
}

// Process runs one detected event through the aggregator, returning a
// completed StationEvent when the event closes out a visit.
func (a *Aggregator) Process(evt *events.Event) *StationEvent {
	switch evt.EventType {
	case "arrival":
		return a.onArrival(evt)
	case "stopped":
		a.onStopped(evt)
	case "doors_opened":
		// No-op: doors_closed is what matters for visit timing.
	case "doors_closed":
		t := evt.NtpTimestamp
		a.cache.timeDoorsLastClosed = &t
	case "moving":
		t := evt.NtpTimestamp
		a.cache.timeDeparted = &t
	case "departure":
		return a.onDeparture(evt)
	case "cabin_changed":
		return a.onCabinChanged(evt)
	case "train_no_changed", "vehicle_count_changed", "vehicle_ids_changed":
		a.vehicle.merge(evt.Data)
	default:
		a.log.Warn().Str("vehicle", evt.Vehicle).Str("event_type", evt.EventType).Msg("unknown event type in station aggregator")
	}
	return nil
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func intField(data map[string]any, key string) int {
	n, _ := data[key].(int)
	return n
}

func (a *Aggregator) onArrival(evt *events.Event) *StationEvent {
	var emitted *StationEvent
	if a.cache.station != nil {
		if e := a.tryEmit(evt); e != nil {
			emitted = e
			a.cache = visitCache{}
		}
	}

	snapshot := a.vehicle.clone()
	station := stringField(evt.Data, "station")
	track := intField(evt.Data, "track")
	direction := stringField(evt.Data, "direction")

	a.cache.arrivalVehicleState = snapshot
	a.cache.station = &station
	a.cache.track = &track
	a.cache.direction = &direction

	newArrival := evt.NtpTimestamp
	if a.cache.timeArrived != nil && a.cache.timeArrived.Before(newArrival) {
		a.cache.timeArrived = nil
	}
	if a.cache.timeDoorsLastClosed != nil && a.cache.timeDoorsLastClosed.Before(newArrival) {
		a.cache.timeDoorsLastClosed = nil
	}
	if a.cache.timeDeparted != nil && a.cache.timeDeparted.Before(newArrival) {
		a.cache.timeDeparted = nil
	}

	return emitted
}

func (a *Aggregator) onStopped(evt *events.Event) {
	if a.cache.timeArrived == nil || a.cache.timeDoorsLastClosed == nil {
		t := evt.NtpTimestamp
		a.cache.timeArrived = &t
	}
}

func (a *Aggregator) onDeparture(evt *events.Event) *StationEvent {
	if a.cache.station == nil || a.cache.track == nil || a.cache.direction == nil {
		station := stringField(evt.Data, "station")
		track := intField(evt.Data, "track")
		direction := stringField(evt.Data, "direction")
		a.cache.station, a.cache.track, a.cache.direction = &station, &track, &direction
	}
	if a.cache.arrivalVehicleState == nil {
		a.cache.arrivalVehicleState = a.vehicle.clone()
	}

	emitted := a.tryEmit(evt)
	if emitted != nil {
		a.cache = visitCache{}
	}
	return emitted
}

func (a *Aggregator) onCabinChanged(evt *events.Event) *StationEvent {
	a.vehicle.merge(evt.Data)
	a.cache.timeDeparted = nil
	a.cache.timeDoorsLastClosed = nil

	emitted := a.tryEmit(evt)
	a.cache = visitCache{}
	return emitted
}

// tryEmit is the _create_event emission guard: station, track and
// direction must all be known, at least one of time_arrived/time_departed
// must be set, and triggerTime (the causing event's ntp_timestamp) must
// not precede any already-recorded time field.
func (a *Aggregator) tryEmit(evt *events.Event) *StationEvent {
	c := a.cache
	if c.station == nil || c.track == nil || c.direction == nil {
		return nil
	}
	if c.timeArrived == nil && c.timeDeparted == nil {
		return nil
	}
	trigger := evt.NtpTimestamp
	for _, t := range []*time.Time{c.timeArrived, c.timeDoorsLastClosed, c.timeDeparted} {
		if t != nil && trigger.Before(*t) {
			return nil
		}
	}

	data := make(map[string]any, len(c.arrivalVehicleState)+3)
	for k, v := range c.arrivalVehicleState {
		data[k] = v
	}
	data["time_arrived"] = c.timeArrived
	data["time_doors_last_closed"] = c.timeDoorsLastClosed
	data["time_departed"] = c.timeDeparted

	return &StationEvent{
		Vehicle:      evt.Vehicle,
		NtpTimestamp: trigger,
		EkeTimestamp: evt.EkeTimestamp,
		Station:      *c.station,
		Track:        *c.track,
		Direction:    *c.direction,
		Data:         data,
	}
}
