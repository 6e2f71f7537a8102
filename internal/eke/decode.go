package eke

import (
	"fmt"
	"strings"
	"time"
)

// connectionStatusSegment is the MQTT topic segment that marks a retained
// connection-status message rather than a binary EKE frame. These never
// reach the schema engine.
const connectionStatusSegment = "connectionStatus"

// Decode parses one raw MQTT payload into a Msg. A nil Msg with a nil error
// means the row was a recognized non-telemetry message (connection status)
// and should be dropped silently rather than counted as a decode failure.
func Decode(row RawRow) (*Msg, error) {
	segments := strings.Split(row.MqttTopic, "/")
	if len(segments) >= 5 && segments[4] == connectionStatusSegment {
		return nil, nil
	}

	fields, err := headerSchema.Parse(row.Raw)
	if err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	if fields == nil {
		return nil, nil
	}

	msgType, _ := fields["msg_type"].(int)
	msg := &Msg{
		MsgType:       msgType,
		MsgName:       msgName(msgType),
		MsgVersion:    fields["msg_version"].(int),
		NtpTimeValid:  fields["ntp_time_valid"].(bool),
		EkeTimestamp:  fields["eke_timestamp"].(time.Time),
		NtpTimestamp:  fields["ntp_timestamp"].(time.Time),
		Vehicle:       row.Vehicle,
		MqttTimestamp: row.MqttTimestamp,
	}

	content, _ := fields["content"].(map[string]any)
	switch msgType {
	case 1:
		msg.Content = udpContentFromFields(content)
	case 5:
		msg.Content = baliseHalfContentFromFields(content)
	}

	return msg, nil
}

func udpContentFromFields(f map[string]any) *UDPContent {
	if f == nil {
		return nil
	}
	c := &UDPContent{}
	if v, ok := f["packet_no"].(int); ok {
		c.PacketNo = uint8(v)
	}
	if v, ok := f["speed"].(float32); ok {
		c.Speed = v
	}
	if v, ok := f["odo"].(int); ok {
		c.Odo = uint16(v)
	}
	if v, ok := f["standstill"].(bool); ok {
		c.Standstill = v
	}
	if v, ok := f["doors_open"].(bool); ok {
		c.DoorsOpen = v
	}
	if v, ok := f["active_cabin"].(string); ok {
		c.ActiveCabin = v
	}
	if v, ok := f["vehicle_count"].(int); ok {
		c.VehicleCount = uint8(v)
	}
	if v, ok := f["vehicle_pos_on_train"].(int); ok {
		c.VehiclePos = uint8(v)
	}
	if v, ok := f["vehicle_no"].(int); ok {
		c.VehicleNo = uint8(v)
	}
	if v, ok := f["all_vehicles"].([4]uint8); ok {
		c.AllVehicles = v
	}
	if v, ok := f["train_no"].(int); ok {
		c.TrainNo = uint16(v)
	}
	if v, ok := f["loc_x"].(float64); ok {
		c.LocX = v
	}
	if v, ok := f["loc_y"].(float64); ok {
		c.LocY = v
	}
	if v, ok := f["main_brake_pipe_pressure"].(float32); ok {
		c.MainBrakePipePressure = v
	}
	if v, ok := f["teleste_timestamp"].(time.Time); ok {
		c.TelesteTimestamp = v.Format(time.RFC3339Nano)
	}
	return c
}

func baliseHalfContentFromFields(f map[string]any) *BaliseHalfContent {
	if f == nil {
		return nil
	}
	c := &BaliseHalfContent{}
	if v, ok := f["msg_index"].(int); ok {
		c.MsgIndex = uint8(v)
	}
	if v, ok := f["transponder_msg_part"].(int); ok {
		c.TransponderMsgPart = uint8(v)
	}
	if v, ok := f["content"].([]byte); ok {
		c.Raw = v
	}
	return c
}

// BaliseContentFromPayload reassembles a full telegram payload (the
// concatenation of two BaliseHalfContent.Raw halves) into a BaliseContent,
// for use by internal/balise once it has paired both halves.
func BaliseContentFromPayload(payload []byte) (*BaliseContent, error) {
	fields, err := BeaconSchema.Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("parsing balise beacon data: %w", err)
	}
	c := &BaliseContent{}
	if v, ok := fields["balise_cba"].(string); ok {
		c.BaliseCba = v
	}
	if v, ok := fields["balise_cbb"].(string); ok {
		c.BaliseCbb = v
	}
	if v, ok := fields["balise_msg_type"].(string); ok {
		c.BaliseMsgType = v
	}
	if v, ok := fields["balise_id"].(int); ok {
		c.BaliseID = v
	}
	if v, ok := fields["balise_id_next"].(int); ok {
		c.BaliseIDNext = v
	}
	return c, nil
}
