package balise

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/keyed"
)

// GroupMaxMsgTimeDiff is the maximum ntp_timestamp gap allowed between two
// balise sightings with the same balise_id for them to be treated as one
// passage (one balise read in each direction of a bidirectional pair).
const GroupMaxMsgTimeDiff = 30 * time.Second

const (
	cbaIncreasing = "1(2)"
)

// DirectionState holds one vehicle's in-flight balise-group pairings,
// keyed by balise_id.
type DirectionState struct {
	cache map[int]*keyed.Envelope[*eke.Msg]
	log   zerolog.Logger
}

// NewDirectionState returns an empty direction resolver for one vehicle.
func NewDirectionState(log zerolog.Logger) *DirectionState {
	return &DirectionState{cache: make(map[int]*keyed.Envelope[*eke.Msg]), log: log}
}

// Resolve runs one combined telegram through the direction resolver. A nil
// result means the telegram is being held awaiting its group partner.
func (s *DirectionState) Resolve(env keyed.Envelope[*eke.Msg]) *keyed.Envelope[*eke.Msg] {
	msg := env.Data
	if msg == nil || msg.MsgType != 5 || msg.Incomplete {
		return &env
	}
	bc, ok := msg.Content.(*eke.BaliseContent)
	if !ok || bc == nil {
		return &env
	}

	if prev := s.cache[bc.BaliseID]; prev != nil {
		diff := ntpDiff(prev.Data, msg)
		if abs(diff) < GroupMaxMsgTimeDiff {
			delete(s.cache, bc.BaliseID)
			if diff > 0 {
				return s.calculateDirection(*prev, env)
			}
			return s.calculateDirection(env, *prev)
		}

		prev.Data.Incomplete = true
		s.log.Warn().Int("balise_id", bc.BaliseID).Msg("balise direction could not be resolved")
		s.cache[bc.BaliseID] = &env
		return prev
	}

	s.cache[bc.BaliseID] = &env
	return nil
}

// calculateDirection derives direction from the pair's balise_cba values:
// direction 1 follows the increasing-cba balise, 2 the opposite. Identical
// cba values mean the pairing is ambiguous; direction is left 0 and a
// warning logged rather than guessed at.
func (s *DirectionState) calculateDirection(first, second keyed.Envelope[*eke.Msg]) *keyed.Envelope[*eke.Msg] {
	bc1 := first.Data.Content.(*eke.BaliseContent)
	bc2 := second.Data.Content.(*eke.BaliseContent)

	direction := 0
	if bc1.BaliseCba == bc2.BaliseCba {
		s.log.Warn().Str("balise_cba", bc1.BaliseCba).Msg("balises have same direction")
	} else if bc1.BaliseCba == cbaIncreasing {
		direction = 1
	} else {
		direction = 2
	}

	combinedMsg := *first.Data
	resolved := *bc1
	resolved.BaliseCba = ""
	resolved.Direction = direction
	combinedMsg.Content = &resolved

	out := keyed.Combine(first, second, &combinedMsg)
	return &out
}
