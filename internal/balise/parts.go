// Package balise reassembles split balise telegrams and resolves the
// travel direction of each passage.
package balise

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/keyed"
)

// MaxMsgTimeDiff is the maximum ntp_timestamp gap allowed between the two
// halves of a telegram for them to be combined.
const MaxMsgTimeDiff = 5 * time.Second

// PartsState holds one vehicle's unmatched balise telegram halves, indexed
// by msg_index (1-255; slot 0 is unused, mirroring the original's
// reservation of index 0).
type PartsState struct {
	slots [256]*keyed.Envelope[*eke.Msg]
	log   zerolog.Logger
}

// NewPartsState returns an empty combiner for one vehicle.
func NewPartsState(log zerolog.Logger) *PartsState {
	return &PartsState{log: log}
}

// pairIndex returns the slot holding (or destined to hold) the other half
// of msgIndex/msgPart's telegram. Part 0 looks forward, part 1 looks
// backward; both wrap within 1-255, skipping the unused 0 slot.
func pairIndex(msgIndex, msgPart int) int {
	if msgPart == 0 {
		if p := (msgIndex + 1) % 256; p != 0 {
			return p
		}
		return 1
	}
	if p := ((msgIndex-1)%256 + 256) % 256; p != 0 {
		return p
	}
	return 255
}

func ntpDiff(a, b *eke.Msg) time.Duration {
	return b.NtpTimestamp.Sub(a.NtpTimestamp)
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Combine runs one record through the parts combiner. It returns nil when
// there is nothing to emit this tick (the record was stored awaiting its
// pair); otherwise it returns the envelope to forward, which may be env
// unchanged, env with a freshly combined BaliseContent, or a previously
// orphaned half now marked Incomplete.
func (s *PartsState) Combine(env keyed.Envelope[*eke.Msg]) *keyed.Envelope[*eke.Msg] {
	msg := env.Data
	if msg == nil || msg.MsgType != 5 {
		return &env
	}
	half, ok := msg.Content.(*eke.BaliseHalfContent)
	if !ok || half == nil {
		return &env
	}

	msgIndex := int(half.MsgIndex)
	msgPart := int(half.TransponderMsgPart)
	pairIdx := pairIndex(msgIndex, msgPart)

	if paired := s.slots[pairIdx]; paired != nil && abs(ntpDiff(paired.Data, msg)) < MaxMsgTimeDiff {
		s.slots[pairIdx] = nil
		combined, err := s.combineHalves(env, *paired, msgPart)
		if err != nil {
			s.log.Error().Err(err).Int("balise_msg_index", msgIndex).Msg("failed to combine balise telegram halves")
			return nil
		}
		return combined
	}

	old := s.slots[msgIndex]
	s.slots[msgIndex] = &env
	if old == nil {
		return nil
	}
	old.Data.ReleasedMqttTimestamp = msg.MqttTimestamp
	old.Data.Incomplete = true
	s.log.Warn().Int("balise_msg_index", msgIndex).Msg("single balise message in cache could not be resolved")
	return old
}

// combineHalves concatenates the two halves' raw payloads in transmission
// order (part 0 first) and parses the combined telegram.
func (s *PartsState) combineHalves(env, paired keyed.Envelope[*eke.Msg], msgPart int) (*keyed.Envelope[*eke.Msg], error) {
	first, second := env, paired
	if msgPart != 0 {
		first, second = paired, env
	}
	firstHalf := first.Data.Content.(*eke.BaliseHalfContent)
	secondHalf := second.Data.Content.(*eke.BaliseHalfContent)

	payload := make([]byte, 0, len(firstHalf.Raw)+len(secondHalf.Raw))
	payload = append(payload, firstHalf.Raw...)
	payload = append(payload, secondHalf.Raw...)

	content, err := eke.BaliseContentFromPayload(payload)
	if err != nil {
		return nil, err
	}

	combinedMsg := *first.Data
	combinedMsg.Content = content
	if second.Data.MqttTimestamp.After(combinedMsg.MqttTimestamp) {
		combinedMsg.MqttTimestamp = second.Data.MqttTimestamp
	}

	out := keyed.Combine(first, second, &combinedMsg)
	return &out, nil
}
