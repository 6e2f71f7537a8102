package eke

import "time"

// MsgTypes maps the 5-bit header msg_type to its human-readable name.
var MsgTypes = map[int]string{
	1:  "UDP",
	2:  "EKE id Struct",
	3:  "EKE JKV status",
	4:  "EKE JKV event",
	5:  "EKE JKV Beacon",
	6:  "EKE JKV Train Msg",
	7:  "EKE JKV Fault Msg",
	8:  "EKE JKV Pressure sensor error",
	9:  "EKE JKV Serial link CRC error",
	10: "EKE JKV Time change",
}

// RawRow is one undecoded record as produced by a source.Reader.
type RawRow struct {
	Vehicle       string
	MqttTopic     string
	MqttTimestamp time.Time
	Raw           []byte
}

// Msg is a fully decoded EKE telemetry record. Content holds one of
// *UDPContent, *BaliseHalfContent (pre-combine), *BaliseContent
// (post-combine, pre/post-direction), or nil for message types whose
// sub-schema payload is not modeled beyond the header.
type Msg struct {
	MsgType      int
	MsgName      string
	MsgVersion   int
	NtpTimeValid bool

	EkeTimestamp time.Time
	NtpTimestamp time.Time

	Vehicle       string
	MqttTimestamp time.Time

	Content any

	// Annotations set by downstream stages (§4.4-4.6).
	Discard               bool
	Incomplete            bool
	ReleasedMqttTimestamp time.Time

	// Set by the timestamp validator (§4.3).
	Tst                     time.Time
	TstCorrected            time.Time
	TstSource               string
	TstEkeCorrectionUTCSecs float64
}

// UDPContent is the msg_type=1 payload. Every field the UDP sub-schema
// decodes is carried as a named struct field.
type UDPContent struct {
	PacketNo     uint8
	Speed        float32
	Odo          uint16
	Standstill   bool
	DoorsOpen    bool
	ActiveCabin  string // "A", "B", "AB", or "" if unset
	VehicleCount uint8
	VehiclePos   uint8
	VehicleNo    uint8
	AllVehicles  [4]uint8
	TrainNo      uint16

	LocX, LocY            float64
	MainBrakePipePressure float32
	TelesteTimestamp      string
}

// BaliseHalfContent is one half of an unreassembled balise telegram
// (msg_type=5, before the parts combiner has run).
type BaliseHalfContent struct {
	MsgIndex           uint8
	TransponderMsgPart uint8
	Raw                []byte
}

// BaliseContent is a combined balise telegram. BaliseCba is present until
// the direction resolver runs, at which point it is cleared and Direction
// is set to 1 or 2 (or left 0 if the pairing never resolved).
type BaliseContent struct {
	BaliseCba     string
	BaliseCbb     string
	BaliseMsgType string
	BaliseID      int
	BaliseIDNext  int
	Direction     int
}
