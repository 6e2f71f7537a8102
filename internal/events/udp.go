package events

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

// udpField describes one row of the UDP event table: how to read the
// field off UDPContent, and which event name(s) a transition maps to.
// ignoreNone fields silently adopt their first non-null value instead of
// emitting an event for the null -> value transition.
type udpField struct {
	name       string
	ignoreNone bool
	trueEvent  string
	falseEvent string
	isBool     bool
	get        func(c *eke.UDPContent) any
}

// udpFields is the table from spec.md §4.7, in scan order.
var udpFields = []udpField{
	{name: "doors_open", isBool: true, trueEvent: "doors_opened", falseEvent: "doors_closed",
		get: func(c *eke.UDPContent) any { return c.DoorsOpen }},
	{name: "standstill", isBool: true, trueEvent: "stopped", falseEvent: "moving",
		get: func(c *eke.UDPContent) any { return c.Standstill }},
	{name: "active_cabin", ignoreNone: true, trueEvent: "cabin_changed", falseEvent: "cabin_changed",
		get: func(c *eke.UDPContent) any { return c.ActiveCabin }},
	{name: "train_no", ignoreNone: true, trueEvent: "train_no_changed",
		get: func(c *eke.UDPContent) any { return c.TrainNo }},
	{name: "vehicle_count", ignoreNone: true, trueEvent: "vehicle_count_changed", falseEvent: "vehicle_count_changed",
		get: func(c *eke.UDPContent) any { return c.VehicleCount }},
	{name: "all_vehicles", ignoreNone: true, trueEvent: "vehicle_ids_changed", falseEvent: "vehicle_ids_changed",
		get: func(c *eke.UDPContent) any { return c.AllVehicles }},
}

// UDPState is the event detector's memory of the last-seen UDP field
// values for one vehicle. A nil map entry means "never seen".
type UDPState struct {
	values      map[string]any
	LastUpdated time.Time
	TstSource   string
}

// NewUDPState returns a vehicle's detector state with nothing seen yet.
func NewUDPState() *UDPState {
	return &UDPState{values: make(map[string]any)}
}

func (f udpField) eventName(newVal any) string {
	if !f.isBool {
		return f.trueEvent
	}
	if newVal.(bool) {
		return f.trueEvent
	}
	return f.falseEvent
}

// ProcessUDP runs one decoded UDP record through the event detector,
// returning the single event produced (if any). Discarded records
// (reorder-buffer rejects) are skipped entirely.
func (s *UDPState) ProcessUDP(msg *eke.Msg, log zerolog.Logger) *Event {
	if msg.Discard {
		return nil
	}
	content, ok := msg.Content.(*eke.UDPContent)
	if !ok || content == nil {
		return nil
	}

	// Step 1: seed any never-initialized non-ignore-none field without
	// emitting an event for its first value.
	for _, f := range udpFields {
		if f.ignoreNone {
			continue
		}
		if _, seen := s.values[f.name]; !seen {
			s.values[f.name] = f.get(content)
			s.LastUpdated = msg.Tst
			s.TstSource = msg.TstSource
		}
	}

	// Step 2: scan in table order for the first real transition.
	for _, f := range udpFields {
		newVal := f.get(content)
		stored, seen := s.values[f.name]
		if !seen {
			if !f.ignoreNone {
				// Already handled in step 1; defensive fallback.
				s.values[f.name] = newVal
				continue
			}
			s.values[f.name] = newVal
			continue
		}
		if stored == newVal {
			continue
		}

		eventType := f.eventName(newVal)
		if eventType == "" {
			s.values[f.name] = newVal
			return nil
		}

		if msg.Tst.Before(s.LastUpdated) {
			log.Warn().Str("vehicle", msg.Vehicle).Str("field", f.name).Msg("ignoring stale event: timestamp older than last update")
			return nil
		}

		s.values[f.name] = newVal
		s.LastUpdated = msg.Tst
		s.TstSource = msg.TstSource

		return &Event{
			Vehicle:       msg.Vehicle,
			Tst:           msg.Tst,
			TstCorrected:  msg.TstCorrected,
			TstSource:     msg.TstSource,
			NtpTimestamp:  msg.NtpTimestamp,
			EkeTimestamp:  msg.EkeTimestamp,
			MqttTimestamp: msg.MqttTimestamp,
			EventType:     eventType,
			Data:          map[string]any{f.name: newVal},
		}
	}

	return nil
}
