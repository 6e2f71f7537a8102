package keyed

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSLdevcom/ajoaikadata/internal/registry"
)

func newTestEventRuntime() (*EventRuntime, *fakeMessageSink, *fakeEventSink) {
	msgSink := &fakeMessageSink{}
	evtSink := &fakeEventSink{}
	reg := registry.New(map[string]registry.Entry{})
	rt := NewEventRuntime(reg, Sinks{Messages: msgSink, Events: evtSink}, zerolog.Nop())
	return rt, msgSink, evtSink
}

func TestEventRuntime_Submit_RepublishesMessageAndEmitsOnTransition(t *testing.T) {
	rt, msgSink, evtSink := newTestEventRuntime()
	defer rt.Shutdown()

	base := time.Unix(1700000000, 0).UTC()
	require.NoError(t, rt.Submit(udpMsg(false, base)))
	require.NoError(t, rt.Submit(udpMsg(true, base.Add(time.Second))))

	assert.Eventually(t, func() bool { return len(evtSink.got) == 1 }, time.Second, time.Millisecond)
	assert.Len(t, msgSink.got, 2, "every message passed through, not just ones that trigger an event")
	assert.Equal(t, "doors_opened", evtSink.got[0].EventType)
}

func TestEventRuntime_Submit_CreatesOneWorkerPerVehicle(t *testing.T) {
	rt, _, _ := newTestEventRuntime()
	defer rt.Shutdown()

	a := udpMsg(false, time.Now())
	a.Vehicle = "1"
	b := udpMsg(false, time.Now())
	b.Vehicle = "2"

	require.NoError(t, rt.Submit(a))
	require.NoError(t, rt.Submit(b))
	assert.Eventually(t, func() bool { return rt.ActiveVehicleKeys() == 2 }, time.Second, time.Millisecond)
}
