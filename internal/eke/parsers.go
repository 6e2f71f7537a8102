package eke

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// uintBE decodes a big-endian unsigned integer from up to 8 bytes.
func uintBE(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func intParser(content []byte) ([]any, error) {
	return []any{int(uintBE(content))}, nil
}

func floatParser(content []byte) ([]any, error) {
	if len(content) != 4 {
		return nil, errFieldLen("float32", 4, len(content))
	}
	bits := binary.BigEndian.Uint32(content)
	return []any{math.Float32frombits(bits)}, nil
}

// timestampWithMS decodes EKE's 5-byte timestamp: 4 bytes of big-endian
// Unix seconds followed by 1 byte of centiseconds (x10 for milliseconds).
// useUTC controls whether the result is tagged UTC (for ntp_timestamp) or
// left as a naive instant (for eke_timestamp, which runs on its own clock).
func timestampWithMS(content []byte, useUTC bool) ([]any, error) {
	if len(content) != 5 {
		return nil, errFieldLen("timestamp", 5, len(content))
	}
	secs := int64(binary.BigEndian.Uint32(content[0:4]))
	centis := int64(content[4])
	loc := time.Local
	if useUTC {
		loc = time.UTC
	}
	t := time.Unix(secs, 0).In(loc).Add(time.Duration(centis) * 10 * time.Millisecond)
	return []any{t}, nil
}

// coordinateParser converts the EKE-native DMS-packed coordinate encoding
// (degrees*100 + minutes, as a float32) into decimal degrees.
func coordinateParser(content []byte) ([]any, error) {
	v, err := floatParser(content)
	if err != nil {
		return nil, err
	}
	val := float64(v[0].(float32))
	intPart := math.Trunc(val / 100)
	deg := intPart + (val-(intPart*100))/60.0
	return []any{deg}, nil
}

func errFieldLen(what string, want, got int) error {
	return fmt.Errorf("%s: expected %d bytes, got %d", what, want, got)
}
