package events

import (
	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/registry"
)

// Detector is one vehicle's full event-detection state: the UDP field
// tracker and the balise station-hit tracker, dispatched by msg_type.
type Detector struct {
	udp    *UDPState
	balise *StationHitState
	reg    *registry.Registry
	log    zerolog.Logger
}

// NewDetector returns a detector for one vehicle. reg may be shared
// across all vehicles' detectors; it is read-only after load.
func NewDetector(reg *registry.Registry, log zerolog.Logger) *Detector {
	return &Detector{
		udp:    NewUDPState(),
		balise: NewStationHitState(),
		reg:    reg,
		log:    log,
	}
}

// Process dispatches msg to the UDP or balise detector by msg_type,
// returning the single event produced, if any.
func (d *Detector) Process(msg *eke.Msg) *Event {
	switch msg.MsgType {
	case 1:
		return d.udp.ProcessUDP(msg, d.log)
	case 5:
		return d.balise.ProcessBalise(msg, d.reg, d.log)
	default:
		return nil
	}
}
