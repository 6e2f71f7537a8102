package eke

// dataSchemaMapping selects the sub-schema parsed into the header's "content"
// field based on msg_type. Message types with no modeled sub-schema are left
// unmapped; the schema engine then stores the remaining bytes verbatim.
var dataSchemaMapping = map[int]*Schema{
	1: udpSchema,
	5: baliseHalfSchema,
}

func standstillParser(content []byte) ([]any, error) {
	if len(content) != 1 {
		return nil, errFieldLen("standstill", 1, len(content))
	}
	return []any{content[0] != 0}, nil
}

// doorsOpenParser treats any set bit across the doors bitmask as "open".
func doorsOpenParser(content []byte) ([]any, error) {
	for _, b := range content {
		if b != 0 {
			return []any{true}, nil
		}
	}
	return []any{false}, nil
}

var activeCabinNames = map[uint8]string{
	0b10: "A",
	0b01: "B",
	0b11: "AB",
}

func activeCabinParser(content []byte) ([]any, error) {
	if len(content) != 1 {
		return nil, errFieldLen("active_cabin", 1, len(content))
	}
	return []any{activeCabinNames[content[0]&0x3]}, nil
}

func allVehiclesParser(content []byte) ([]any, error) {
	if len(content) != 4 {
		return nil, errFieldLen("all_vehicles", 4, len(content))
	}
	var out [4]uint8
	copy(out[:], content)
	return []any{out}, nil
}

func telesteTimestampParser(content []byte) ([]any, error) {
	t, err := timestampWithMS(content, false)
	if err != nil {
		return nil, err
	}
	return []any{t[0]}, nil
}

// udpSchema is the Stadler UDP telemetry sub-schema (msg_type=1), ported
// field-for-field from the original stadler_udp.py byte layout.
var udpSchema = &Schema{
	Fields: []FieldParser{
		{Names: []string{"packet_no"}, StartByte: 0, EndByte: 0, Parse: intParser},
		{Names: []string{"speed"}, StartByte: 1, EndByte: 4, Parse: floatParser},
		{Names: []string{"odo"}, StartByte: 5, EndByte: 8, Parse: intParser},
		{Names: []string{"standstill"}, StartByte: 9, EndByte: 9, Parse: standstillParser},
		{Names: []string{"doors_open"}, StartByte: 10, EndByte: 11, Parse: doorsOpenParser},
		{Names: []string{"active_cabin"}, StartByte: 12, EndByte: 12, Parse: activeCabinParser},
		{Names: []string{"vehicle_count"}, StartByte: 13, EndByte: 13, Parse: intParser},
		{Names: []string{"vehicle_pos_on_train"}, StartByte: 14, EndByte: 14, Parse: intParser},
		{Names: []string{"vehicle_no"}, StartByte: 15, EndByte: 15, Parse: intParser},
		{Names: []string{"all_vehicles"}, StartByte: 16, EndByte: 19, Parse: allVehiclesParser},
		{Names: []string{"train_no"}, StartByte: 20, EndByte: 21, Parse: intParser},
		{Names: []string{"loc_x"}, StartByte: 22, EndByte: 25, Parse: coordinateParser},
		{Names: []string{"loc_y"}, StartByte: 26, EndByte: 29, Parse: coordinateParser},
		{Names: []string{"main_brake_pipe_pressure"}, StartByte: 30, EndByte: 33, Parse: floatParser},
		{Names: []string{"teleste_timestamp"}, StartByte: 34, EndByte: 38, Parse: telesteTimestampParser},
	},
}
