// Package tstvalidate picks a best-effort corrected timestamp for each EKE
// record, tracking a per-vehicle NTP correction offset across records.
package tstvalidate

import (
	"sync"
	"time"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

// ntpAgreementWindow is the mqtt/ntp skew under which an untrusted
// ntp_timestamp is still accepted to refresh the correction offset.
const ntpAgreementWindow = 2 * time.Second

// Validator tracks the last accepted correction offset per vehicle. Each
// vehicle's state is only ever touched by the worker owning that key, but
// the map itself is guarded for callers that share one Validator across
// workers (e.g. tests, or a non-keyed pipeline mode).
type Validator struct {
	mu      sync.Mutex
	offsets map[string]time.Duration
}

// NewValidator returns a Validator with no vehicles seen yet.
func NewValidator() *Validator {
	return &Validator{offsets: make(map[string]time.Duration)}
}

// Apply annotates msg's Tst/TstCorrected/TstSource/TstEkeCorrectionUTCSecs
// fields in place, using and updating the stored offset for msg.Vehicle.
func (v *Validator) Apply(msg *eke.Msg) {
	v.mu.Lock()
	offset := v.offsets[msg.Vehicle]
	v.mu.Unlock()

	offset = apply(offset, msg)

	v.mu.Lock()
	v.offsets[msg.Vehicle] = offset
	v.mu.Unlock()
}

// apply is the pure per-record transition: given the prior correction
// offset, it mutates msg's timestamp fields and returns the offset to
// carry forward to the vehicle's next record.
func apply(lastCorrection time.Duration, msg *eke.Msg) time.Duration {
	msg.Tst = msg.EkeTimestamp
	msg.TstSource = "eke"

	skew := msg.MqttTimestamp.Sub(msg.NtpTimestamp)
	if skew < 0 {
		skew = -skew
	}
	if msg.NtpTimeValid || skew < ntpAgreementWindow {
		lastCorrection = msg.NtpTimestamp.UTC().Sub(msg.EkeTimestamp)
	}

	msg.TstEkeCorrectionUTCSecs = lastCorrection.Seconds()
	msg.TstCorrected = msg.EkeTimestamp.Add(lastCorrection).UTC()
	return lastCorrection
}
