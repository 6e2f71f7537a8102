package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/registry"
)

// StationHitState is the event detector's memory of the last
// registry-resolved balise hit for one vehicle, used to decide whether a
// new hit is a real arrival/departure transition or a repeat.
type StationHitState struct {
	Station     string
	Track       int
	Direction   string
	Event       string
	LastUpdated time.Time
	set         bool
}

// NewStationHitState returns a vehicle's balise-hit state with nothing
// seen yet.
func NewStationHitState() *StationHitState {
	return &StationHitState{}
}

// ProcessBalise runs one resolved balise telegram through the registry
// lookup and station-hit change detector. Incomplete telegrams (direction
// never resolved) and telegrams whose balise/direction pair is not in the
// registry produce no event.
func (s *StationHitState) ProcessBalise(msg *eke.Msg, reg *registry.Registry, log zerolog.Logger) *Event {
	if msg.Incomplete {
		return nil
	}
	bc, ok := msg.Content.(*eke.BaliseContent)
	if !ok || bc == nil {
		return nil
	}

	key := fmt.Sprintf("%d_%d", bc.BaliseID, bc.Direction)
	entry, ok := reg.Lookup(key)
	if !ok {
		return nil
	}

	eventType := strings.ToLower(entry.Type)
	data := map[string]any{
		"station":      entry.Station,
		"track":        entry.Track,
		"direction":    entry.TrainDirection,
		"triggered_by": key,
	}

	changed := !s.set || s.Station != entry.Station || s.Track != entry.Track ||
		s.Direction != entry.TrainDirection || s.Event != eventType

	if !changed {
		return newBaliseEvent(msg, eventType+"_debug", data)
	}

	if msg.Tst.Before(s.LastUpdated) {
		log.Warn().Str("vehicle", msg.Vehicle).Str("balise_key", key).Msg("ignoring stale station hit: timestamp older than last update")
		return nil
	}

	s.Station, s.Track, s.Direction, s.Event = entry.Station, entry.Track, entry.TrainDirection, eventType
	s.LastUpdated = msg.Tst
	s.set = true

	return newBaliseEvent(msg, eventType, data)
}

func newBaliseEvent(msg *eke.Msg, eventType string, data map[string]any) *Event {
	return &Event{
		Vehicle:       msg.Vehicle,
		Tst:           msg.Tst,
		TstCorrected:  msg.TstCorrected,
		TstSource:     msg.TstSource,
		NtpTimestamp:  msg.NtpTimestamp,
		EkeTimestamp:  msg.EkeTimestamp,
		MqttTimestamp: msg.MqttTimestamp,
		EventType:     eventType,
		Data:          data,
	}
}
