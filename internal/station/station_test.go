package station

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSLdevcom/ajoaikadata/internal/events"
)

func evt(eventType string, tst time.Time, data map[string]any) *events.Event {
	return &events.Event{
		Vehicle:      "1",
		NtpTimestamp: tst,
		EkeTimestamp: tst,
		EventType:    eventType,
		Data:         data,
	}
}

func TestAggregator_ArrivalAloneEmitsNothing(t *testing.T) {
	a := NewAggregator(zerolog.Nop())
	base := time.Unix(1_700_000_000, 0)
	out := a.Process(evt("arrival", base, map[string]any{"station": "HKI", "track": 5, "direction": "1"}))
	assert.Nil(t, out)
}

func TestAggregator_ArrivalThenDepartureEmitsOneEvent(t *testing.T) {
	a := NewAggregator(zerolog.Nop())
	base := time.Unix(1_700_000_000, 0)
	require.Nil(t, a.Process(evt("arrival", base, map[string]any{"station": "HKI", "track": 5, "direction": "1"})))
	require.Nil(t, a.Process(evt("stopped", base.Add(time.Second), nil)))
	require.Nil(t, a.Process(evt("doors_closed", base.Add(2*time.Second), nil)))
	require.Nil(t, a.Process(evt("moving", base.Add(30*time.Second), nil)))

	out := a.Process(evt("departure", base.Add(31*time.Second), map[string]any{"station": "HKI", "track": 5, "direction": "1"}))
	require.NotNil(t, out)
	assert.Equal(t, "HKI", out.Station)
	assert.Equal(t, 5, out.Track)
	assert.Equal(t, "1", out.Direction)
	assert.NotNil(t, out.Data["time_arrived"])
	assert.NotNil(t, out.Data["time_doors_last_closed"])
	assert.NotNil(t, out.Data["time_departed"])
}

func TestAggregator_SecondArrivalWithoutDepartureEmitsHeldVisitFirst(t *testing.T) {
	a := NewAggregator(zerolog.Nop())
	base := time.Unix(1_700_000_000, 0)
	require.Nil(t, a.Process(evt("arrival", base, map[string]any{"station": "HKI", "track": 5, "direction": "1"})))
	require.Nil(t, a.Process(evt("stopped", base.Add(time.Second), nil)))
	require.Nil(t, a.Process(evt("doors_closed", base.Add(2*time.Second), nil)))

	later := base.Add(time.Hour)
	out := a.Process(evt("arrival", later, map[string]any{"station": "PSL", "track": 2, "direction": "2"}))
	require.NotNil(t, out, "arrival while a visit with a recorded time is held must flush it before overwriting")
	assert.Equal(t, "HKI", out.Station)
}

func TestAggregator_CabinChangedWithOnlyDoorsClosedRecordedEmitsNothing(t *testing.T) {
	a := NewAggregator(zerolog.Nop())
	base := time.Unix(1_700_000_000, 0)
	// Only time_doors_last_closed is recorded. cabin_changed clears it (and
	// time_departed) before the emission guard runs, so neither
	// time_arrived nor time_departed is set and nothing is emitted.
	require.Nil(t, a.Process(evt("arrival", base, map[string]any{"station": "HKI", "track": 5, "direction": "1"})))
	require.Nil(t, a.Process(evt("doors_closed", base.Add(10*time.Second), nil)))

	out := a.Process(evt("cabin_changed", base.Add(time.Second), map[string]any{"active_cabin": "B"}))
	assert.Nil(t, out, "no time_arrived or time_departed is held, so cabin_changed must not emit")
}

func TestAggregator_CabinChangedAlwaysClearsCacheEvenWithoutEmission(t *testing.T) {
	a := NewAggregator(zerolog.Nop())
	base := time.Unix(1_700_000_000, 0)
	require.Nil(t, a.Process(evt("arrival", base, map[string]any{"station": "HKI", "track": 5, "direction": "1"})))
	require.Nil(t, a.Process(evt("stopped", base.Add(5*time.Second), nil)))

	// cabin_changed's trigger precedes time_arrived, so the guard blocks
	// emission; the held visit must still be dropped.
	require.Nil(t, a.Process(evt("cabin_changed", base.Add(time.Second), map[string]any{"active_cabin": "B"})))

	out := a.Process(evt("arrival", base.Add(10*time.Second), map[string]any{"station": "PSL", "track": 1, "direction": "2"}))
	assert.Nil(t, out, "cache was cleared by cabin_changed even though nothing emitted, so no held visit remains")
}

func TestAggregator_TrainNoChangedMergesWithoutEmitting(t *testing.T) {
	a := NewAggregator(zerolog.Nop())
	out := a.Process(evt("train_no_changed", time.Unix(1_700_000_000, 0), map[string]any{"train_no": 123}))
	assert.Nil(t, out)
	assert.Equal(t, 123, a.vehicle["train_no"])
}

func TestAggregator_DepartureFirstVisitPopulatesFromEventData(t *testing.T) {
	a := NewAggregator(zerolog.Nop())
	base := time.Unix(1_700_000_000, 0)
	require.Nil(t, a.Process(evt("stopped", base, nil)))

	out := a.Process(evt("departure", base.Add(time.Second), map[string]any{"station": "HKI", "track": 5, "direction": "1"}))
	require.NotNil(t, out)
	assert.Equal(t, "HKI", out.Station)
}

func TestAggregator_UnknownEventTypeIgnored(t *testing.T) {
	a := NewAggregator(zerolog.Nop())
	out := a.Process(evt("something_else", time.Now(), nil))
	assert.Nil(t, out)
}
