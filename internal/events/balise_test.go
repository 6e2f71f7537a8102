package events

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/registry"
)

func testRegistry() *registry.Registry {
	return registry.New(map[string]registry.Entry{
		"100_1": {Station: "HKI", Track: 5, Type: "ARRIVAL", TrainDirection: "1"},
		"100_2": {Station: "HKI", Track: 5, Type: "DEPARTURE", TrainDirection: "2"},
	})
}

func baliseEventMsg(tst time.Time, id, direction int) *eke.Msg {
	return &eke.Msg{
		MsgType: 5,
		Vehicle: "1",
		Tst:     tst,
		Content: &eke.BaliseContent{BaliseID: id, Direction: direction},
	}
}

func TestStationHitState_FirstHitEmitsEvent(t *testing.T) {
	s := NewStationHitState()
	evt := s.ProcessBalise(baliseEventMsg(time.Unix(1_700_000_000, 0), 100, 1), testRegistry(), zerolog.Nop())
	require.NotNil(t, evt)
	assert.Equal(t, "arrival", evt.EventType)
	assert.Equal(t, "HKI", evt.Data["station"])
}

func TestStationHitState_RepeatHitEmitsDebugEvent(t *testing.T) {
	s := NewStationHitState()
	base := time.Unix(1_700_000_000, 0)
	s.ProcessBalise(baliseEventMsg(base, 100, 1), testRegistry(), zerolog.Nop())

	evt := s.ProcessBalise(baliseEventMsg(base.Add(time.Second), 100, 1), testRegistry(), zerolog.Nop())
	require.NotNil(t, evt)
	assert.Equal(t, "arrival_debug", evt.EventType)
}

func TestStationHitState_UnknownBaliseEmitsNothing(t *testing.T) {
	s := NewStationHitState()
	evt := s.ProcessBalise(baliseEventMsg(time.Now(), 999, 1), testRegistry(), zerolog.Nop())
	assert.Nil(t, evt)
}

func TestStationHitState_IncompleteSkipped(t *testing.T) {
	s := NewStationHitState()
	msg := baliseEventMsg(time.Now(), 100, 1)
	msg.Incomplete = true
	assert.Nil(t, s.ProcessBalise(msg, testRegistry(), zerolog.Nop()))
}

func TestStationHitState_DepartureAfterArrival(t *testing.T) {
	s := NewStationHitState()
	base := time.Unix(1_700_000_000, 0)
	s.ProcessBalise(baliseEventMsg(base, 100, 1), testRegistry(), zerolog.Nop())

	evt := s.ProcessBalise(baliseEventMsg(base.Add(time.Minute), 100, 2), testRegistry(), zerolog.Nop())
	require.NotNil(t, evt)
	assert.Equal(t, "departure", evt.EventType)
}
