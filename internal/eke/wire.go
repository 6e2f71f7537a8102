package eke

import (
	"encoding/json"
	"time"
)

// msgWire is Msg's on-the-wire shape: Content travels as raw JSON so it
// can be re-typed against MsgType on the receiving end, the way the
// concrete *UDPContent/*BaliseContent pointer normally carries its own
// type at runtime but an any field cannot survive a JSON round trip.
// This only matters once a Msg crosses a process boundary (the
// contentparser -> eventcreator broker hop); within one process Content
// is never marshaled.
type msgWire struct {
	MsgType      int             `json:"msg_type"`
	MsgName      string          `json:"msg_name"`
	MsgVersion   int             `json:"msg_version"`
	NtpTimeValid bool            `json:"ntp_time_valid"`
	EkeTimestamp time.Time       `json:"eke_timestamp"`
	NtpTimestamp time.Time       `json:"ntp_timestamp"`
	Vehicle      string          `json:"vehicle"`
	MqttTimestamp time.Time      `json:"mqtt_timestamp"`
	Content      json.RawMessage `json:"content,omitempty"`
	Discard      bool            `json:"discard"`
	Incomplete   bool            `json:"incomplete"`
	ReleasedMqttTimestamp time.Time `json:"released_mqtt_timestamp"`

	Tst                     time.Time `json:"tst"`
	TstCorrected            time.Time `json:"tst_corrected"`
	TstSource               string    `json:"tst_source"`
	TstEkeCorrectionUTCSecs float64   `json:"tst_eke_correction_utc_secs"`
}

// MarshalJSON implements json.Marshaler.
func (m *Msg) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if m.Content != nil {
		encoded, err := json.Marshal(m.Content)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(msgWire{
		MsgType:                 m.MsgType,
		MsgName:                 m.MsgName,
		MsgVersion:              m.MsgVersion,
		NtpTimeValid:            m.NtpTimeValid,
		EkeTimestamp:            m.EkeTimestamp,
		NtpTimestamp:            m.NtpTimestamp,
		Vehicle:                 m.Vehicle,
		MqttTimestamp:           m.MqttTimestamp,
		Content:                 raw,
		Discard:                 m.Discard,
		Incomplete:              m.Incomplete,
		ReleasedMqttTimestamp:   m.ReleasedMqttTimestamp,
		Tst:                     m.Tst,
		TstCorrected:            m.TstCorrected,
		TstSource:               m.TstSource,
		TstEkeCorrectionUTCSecs: m.TstEkeCorrectionUTCSecs,
	})
}

// UnmarshalJSON implements json.Unmarshaler, re-typing Content against
// MsgType. Only msg_type 1 (UDP) and 5 (balise) ever carry a Content
// value by the time a Msg is emitted from the pipeline's balise stages,
// so those are the only two cases handled here. A msg_type 5 Content is
// either a combined telegram or an unpaired half released as incomplete;
// the half is recognized by its TransponderMsgPart key.
func (m *Msg) UnmarshalJSON(data []byte) error {
	var w msgWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Msg{
		MsgType:                 w.MsgType,
		MsgName:                 w.MsgName,
		MsgVersion:              w.MsgVersion,
		NtpTimeValid:            w.NtpTimeValid,
		EkeTimestamp:            w.EkeTimestamp,
		NtpTimestamp:            w.NtpTimestamp,
		Vehicle:                 w.Vehicle,
		MqttTimestamp:           w.MqttTimestamp,
		Discard:                 w.Discard,
		Incomplete:              w.Incomplete,
		ReleasedMqttTimestamp:   w.ReleasedMqttTimestamp,
		Tst:                     w.Tst,
		TstCorrected:            w.TstCorrected,
		TstSource:               w.TstSource,
		TstEkeCorrectionUTCSecs: w.TstEkeCorrectionUTCSecs,
	}
	if len(w.Content) == 0 {
		return nil
	}
	switch w.MsgType {
	case 1:
		var c UDPContent
		if err := json.Unmarshal(w.Content, &c); err != nil {
			return err
		}
		m.Content = &c
	case 5:
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(w.Content, &probe); err != nil {
			return err
		}
		if _, half := probe["TransponderMsgPart"]; half {
			var c BaliseHalfContent
			if err := json.Unmarshal(w.Content, &c); err != nil {
				return err
			}
			m.Content = &c
			break
		}
		var c BaliseContent
		if err := json.Unmarshal(w.Content, &c); err != nil {
			return err
		}
		m.Content = &c
	}
	return nil
}
