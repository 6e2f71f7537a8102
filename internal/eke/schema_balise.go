package eke

import "fmt"

// baliseHalfSchema is the msg_type=5 sub-schema for one UDP packet's worth
// of a balise telegram. A telegram arrives split across two packets
// distinguished by transponder_msg_part; internal/balise reassembles the
// two Raw payloads before BeaconSchema is applied to the combined bytes.
var baliseHalfSchema = &Schema{
	Fields: []FieldParser{
		{Names: []string{"msg_index"}, StartByte: 0, EndByte: 0, Parse: intParser},
		{Names: []string{"transponder_msg_part"}, StartByte: 1, EndByte: 1, Parse: intParser},
	},
	Data: &DataContent{StartByte: 2},
}

var cbaTypes = map[uint8]string{
	0x2: "1(2)",
	0x3: "2(2)",
	0xB: "2(2)*",
}

var cbbTypes = map[uint8]string{
	0x1: "Single",
	0x2: "Double",
}

// baliseMsgTypes maps the telegram's message-type byte to a name. Only the
// values seen in the registry's traffic are named; others decode to
// "Unknown (N)", the same fallback format msgName uses.
var baliseMsgTypes = map[uint8]string{
	0:  "No message",
	3:  "National packet",
	5:  "National/int'l packet",
	8:  "Linking information",
	41: "International packet",
	44: "International packet",
}

func cbaParser(content []byte) ([]any, error) {
	if len(content) != 1 {
		return nil, errFieldLen("balise_cba", 1, len(content))
	}
	return []any{cbaTypes[content[0]>>4]}, nil
}

func cbbParser(content []byte) ([]any, error) {
	if len(content) != 1 {
		return nil, errFieldLen("balise_cbb", 1, len(content))
	}
	return []any{cbbTypes[content[0]&0xF]}, nil
}

func baliseMsgTypeParser(content []byte) ([]any, error) {
	if len(content) != 1 {
		return nil, errFieldLen("balise_msg_type", 1, len(content))
	}
	name, ok := baliseMsgTypes[content[0]]
	if !ok {
		name = fmt.Sprintf("Unknown (%d)", content[0])
	}
	return []any{name}, nil
}

// balisePolyBase is the polynomial base used by the telegram's identity
// checksum.
const balisePolyBase = 14

// baliseNibbles splits content into its nibbles, high nibble of each byte
// first.
func baliseNibbles(content []byte) []int {
	out := make([]int, 0, len(content)*2)
	for _, b := range content {
		out = append(out, int(b>>4), int(b&0xF))
	}
	return out
}

// balisePolynomialSum evaluates sum((nibble-1) * base^i) over nibbles,
// low-nibble-first (nibbles[0] is the units term), matching the telegram
// identity field's check-digit construction.
func balisePolynomialSum(nibbles []int, base int) int {
	sum := 0
	pow := 1
	for _, n := range nibbles {
		sum += (n - 1) * pow
		pow *= base
	}
	return sum
}

// baliseIDParser derives balise_id and balise_id_next from the same 5
// bytes: both are a base-14 polynomial over half of the bytes' 10
// nibbles, balise_id over the first five and balise_id_next over the
// last five.
func baliseIDParser(content []byte) ([]any, error) {
	if len(content) != 5 {
		return nil, errFieldLen("balise_id", 5, len(content))
	}
	nibbles := baliseNibbles(content)
	id := balisePolynomialSum(nibbles[0:5], balisePolyBase)
	idNext := balisePolynomialSum(nibbles[5:10], balisePolyBase)
	return []any{id, idNext}, nil
}

// BeaconSchema parses a fully reassembled balise telegram (the two
// baliseHalfSchema Raw payloads concatenated) into identity and direction
// fields. Exported for internal/balise to apply after part-combining.
var BeaconSchema = &Schema{
	Fields: []FieldParser{
		{Names: []string{"balise_cba"}, StartByte: 0, EndByte: 0, Parse: cbaParser},
		{Names: []string{"balise_cbb"}, StartByte: 0, EndByte: 0, Parse: cbbParser},
		{Names: []string{"balise_msg_type"}, StartByte: 1, EndByte: 1, Parse: baliseMsgTypeParser},
		{Names: []string{"balise_id", "balise_id_next"}, StartByte: 2, EndByte: 6, Parse: baliseIDParser},
	},
}
