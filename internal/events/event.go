// Package events detects discrete per-vehicle events from the decoded EKE
// stream: UDP field transitions (doors, standstill, cabin, composition)
// and balise-derived station arrival/departure hits.
package events

import "time"

// Event is one detected state transition, carrying enough of the
// envelope's timestamp bookkeeping for downstream sinks and the station
// aggregator to reconstruct ordering without re-touching the source
// record.
type Event struct {
	Vehicle       string
	Tst           time.Time
	TstCorrected  time.Time
	TstSource     string
	NtpTimestamp  time.Time
	EkeTimestamp  time.Time
	MqttTimestamp time.Time
	EventType     string
	Data          map[string]any
}
