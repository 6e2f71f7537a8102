package tstvalidate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

func TestApply_NtpValidUpdatesOffset(t *testing.T) {
	eketime := time.Unix(1_700_000_000, 0)
	ntptime := eketime.Add(3 * time.Second)

	msg := &eke.Msg{
		EkeTimestamp:  eketime,
		NtpTimestamp:  ntptime,
		MqttTimestamp: ntptime,
		NtpTimeValid:  true,
	}

	offset := apply(0, msg)
	assert.Equal(t, 3*time.Second, offset)
	assert.Equal(t, "eke", msg.TstSource)
	assert.Equal(t, eketime, msg.Tst)
	assert.Equal(t, float64(3), msg.TstEkeCorrectionUTCSecs)
	assert.Equal(t, eketime.Add(3*time.Second).Unix(), msg.TstCorrected.Unix())
}

func TestApply_InvalidFarSkewKeepsPriorOffset(t *testing.T) {
	eketime := time.Unix(1_700_000_000, 0)
	msg := &eke.Msg{
		EkeTimestamp:  eketime,
		NtpTimestamp:  eketime.Add(10 * time.Second),
		MqttTimestamp: eketime.Add(30 * time.Second), // skew 20s >= 2s window
		NtpTimeValid:  false,
	}

	offset := apply(5*time.Second, msg)
	assert.Equal(t, 5*time.Second, offset, "offset should not update when skew is large and ntp is not valid")
	assert.Equal(t, float64(5), msg.TstEkeCorrectionUTCSecs)
}

func TestApply_InvalidButWithinAgreementWindowUpdatesOffset(t *testing.T) {
	eketime := time.Unix(1_700_000_000, 0)
	ntptime := eketime.Add(4 * time.Second)
	msg := &eke.Msg{
		EkeTimestamp:  eketime,
		NtpTimestamp:  ntptime,
		MqttTimestamp: ntptime.Add(500 * time.Millisecond), // skew < 2s
		NtpTimeValid:  false,
	}

	offset := apply(0, msg)
	assert.Equal(t, 4*time.Second, offset)
}

func TestValidator_PerVehicleIsolation(t *testing.T) {
	v := NewValidator()
	eketime := time.Unix(1_700_000_000, 0)

	a := &eke.Msg{Vehicle: "A", EkeTimestamp: eketime, NtpTimestamp: eketime.Add(2 * time.Second), MqttTimestamp: eketime.Add(2 * time.Second), NtpTimeValid: true}
	b := &eke.Msg{Vehicle: "B", EkeTimestamp: eketime, NtpTimestamp: eketime.Add(9 * time.Second), MqttTimestamp: eketime.Add(9 * time.Second), NtpTimeValid: true}

	v.Apply(a)
	v.Apply(b)

	assert.Equal(t, float64(2), a.TstEkeCorrectionUTCSecs)
	assert.Equal(t, float64(9), b.TstEkeCorrectionUTCSecs)
}
