package eke

import "fmt"

// headerParser decodes the 12-byte EKE message header shared by every
// message type: a 16-bit big-endian word of packed msg_type/msg_version/
// ntp_time_valid bits, followed by a 5-byte eke_timestamp and a 5-byte
// ntp_timestamp.
//
//	bytes 0-1: head, big-endian uint16 — bits 0-4 msg_type, bits 5-14
//	           msg_version, bit 15 ntp_time_valid
//	bytes 2-6: eke_timestamp
//	bytes 7-11: ntp_timestamp
func headerParser(content []byte) ([]any, error) {
	if len(content) != 2 {
		return nil, errFieldLen("header flags", 2, len(content))
	}
	head := uint16(content[0])<<8 | uint16(content[1])
	msgType := int(head & 0x1F)
	msgVersion := int((head >> 5) & 0x3FF)
	ntpTimeValid := head>>15 == 1
	return []any{msgType, msgVersion, ntpTimeValid}, nil
}

func ekeTimestampParser(content []byte) ([]any, error) {
	return timestampWithMS(content, false)
}

func ntpTimestampParser(content []byte) ([]any, error) {
	return timestampWithMS(content, true)
}

// headerSchema describes the 12-byte EKE header. The msg_type field drives
// dataSchemaMapping's selection of the per-message-type sub-schema.
var headerSchema = &Schema{
	Fields: []FieldParser{
		{Names: []string{"msg_type", "msg_version", "ntp_time_valid"}, StartByte: 0, EndByte: 1, Parse: headerParser},
		{Names: []string{"eke_timestamp"}, StartByte: 2, EndByte: 6, Parse: ekeTimestampParser},
		{Names: []string{"ntp_timestamp"}, StartByte: 7, EndByte: 11, Parse: ntpTimestampParser},
	},
	Data: &DataContent{
		StartByte:      12,
		Selector:       "msg_type",
		Mapping:        dataSchemaMapping,
		UnpackToHeader: false,
	},
}

// msgName returns the human-readable name for a header msg_type, or a
// placeholder for values outside MsgTypes.
func msgName(msgType int) string {
	if name, ok := MsgTypes[msgType]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", msgType)
}
