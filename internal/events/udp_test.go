package events

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

func udpEventMsg(tst time.Time, c *eke.UDPContent) *eke.Msg {
	return &eke.Msg{MsgType: 1, Vehicle: "1", Tst: tst, Content: c}
}

func TestUDPState_FirstRecordInitializesWithoutEvent(t *testing.T) {
	s := NewUDPState()
	base := time.Unix(1_700_000_000, 0)
	evt := s.ProcessUDP(udpEventMsg(base, &eke.UDPContent{DoorsOpen: false, Standstill: true}), zerolog.Nop())
	assert.Nil(t, evt)
}

func TestUDPState_DoorsOpenedAndClosed(t *testing.T) {
	s := NewUDPState()
	base := time.Unix(1_700_000_000, 0)
	s.ProcessUDP(udpEventMsg(base, &eke.UDPContent{DoorsOpen: false, Standstill: true}), zerolog.Nop())

	evt := s.ProcessUDP(udpEventMsg(base.Add(time.Second), &eke.UDPContent{DoorsOpen: true, Standstill: true}), zerolog.Nop())
	require.NotNil(t, evt)
	assert.Equal(t, "doors_opened", evt.EventType)
	assert.Equal(t, true, evt.Data["doors_open"])

	evt2 := s.ProcessUDP(udpEventMsg(base.Add(2*time.Second), &eke.UDPContent{DoorsOpen: false, Standstill: true}), zerolog.Nop())
	require.NotNil(t, evt2)
	assert.Equal(t, "doors_closed", evt2.EventType)
}

func TestUDPState_IgnoreNoneSuppressesFirstCabinSet(t *testing.T) {
	s := NewUDPState()
	base := time.Unix(1_700_000_000, 0)
	evt := s.ProcessUDP(udpEventMsg(base, &eke.UDPContent{DoorsOpen: false, Standstill: true, ActiveCabin: "A"}), zerolog.Nop())
	assert.Nil(t, evt, "first-ever active_cabin value should not fire cabin_changed")

	evt2 := s.ProcessUDP(udpEventMsg(base.Add(time.Second), &eke.UDPContent{DoorsOpen: false, Standstill: true, ActiveCabin: "B"}), zerolog.Nop())
	require.NotNil(t, evt2)
	assert.Equal(t, "cabin_changed", evt2.EventType)
}

func TestUDPState_OnlyOneEventPerRecord(t *testing.T) {
	s := NewUDPState()
	base := time.Unix(1_700_000_000, 0)
	s.ProcessUDP(udpEventMsg(base, &eke.UDPContent{DoorsOpen: false, Standstill: true}), zerolog.Nop())

	evt := s.ProcessUDP(udpEventMsg(base.Add(time.Second), &eke.UDPContent{DoorsOpen: true, Standstill: false}), zerolog.Nop())
	require.NotNil(t, evt)
	assert.Equal(t, "doors_opened", evt.EventType, "doors_open precedes standstill in table order")
}

func TestUDPState_StaleTimestampSuppressesEvent(t *testing.T) {
	s := NewUDPState()
	base := time.Unix(1_700_000_000, 0)
	s.ProcessUDP(udpEventMsg(base, &eke.UDPContent{DoorsOpen: false, Standstill: true}), zerolog.Nop())
	s.ProcessUDP(udpEventMsg(base.Add(5*time.Second), &eke.UDPContent{DoorsOpen: true, Standstill: true}), zerolog.Nop())

	stale := s.ProcessUDP(udpEventMsg(base.Add(time.Second), &eke.UDPContent{DoorsOpen: false, Standstill: true}), zerolog.Nop())
	assert.Nil(t, stale)
}

func TestUDPState_DiscardedMessageSkipped(t *testing.T) {
	s := NewUDPState()
	msg := udpEventMsg(time.Now(), &eke.UDPContent{DoorsOpen: true})
	msg.Discard = true
	assert.Nil(t, s.ProcessUDP(msg, zerolog.Nop()))
}
