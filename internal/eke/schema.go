// Package eke decodes binary EKE telemetry frames into typed messages.
//
// The decoder is built around a small byte-offset schema engine, ported
// field-for-field from the original Python ekeparser/schemas package: a
// schema is an ordered list of field parsers, each owning a [start,end]
// byte range and a parse function, plus an optional data-content region
// that is either a fixed sub-schema or selected by a header field.
package eke

import "fmt"

// FieldParser describes how to extract one or more named values from a
// byte range of the message.
type FieldParser struct {
	Names     []string
	StartByte int
	EndByte   int // inclusive
	Parse     func(content []byte) ([]any, error)
}

// DataContent describes the variable "rest of the message" region: either
// a single fixed sub-schema, or a selector-driven map of sub-schemas.
type DataContent struct {
	StartByte      int
	Fixed          *Schema
	Selector       string // header field name used to pick a schema from Mapping
	Mapping        map[int]*Schema
	UnpackToHeader bool // merge parsed fields into the parent map instead of nesting under "content"
}

// Schema is an ordered set of field parsers plus an optional data-content
// region. Ignore marks a schema whose data content should not be decoded
// at all (the decoder returns nil for the whole message).
type Schema struct {
	Fields      []FieldParser
	Data        *DataContent
	Ignore      bool
}

// Parse runs the schema over content, returning a flat field map. A
// returned nil map with nil error means "ignore this message" (selected
// sub-schema was marked Ignore).
func (s *Schema) Parse(content []byte) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields)+1)

	for _, f := range s.Fields {
		if f.EndByte+1 > len(content) {
			return nil, fmt.Errorf("field %v out of range: need %d bytes, have %d", f.Names, f.EndByte+1, len(content))
		}
		slice := content[f.StartByte : f.EndByte+1]
		values, err := f.Parse(slice)
		if err != nil {
			return nil, fmt.Errorf("parsing field %v: %w", f.Names, err)
		}
		if len(values) != len(f.Names) {
			return nil, fmt.Errorf("field %v: parser returned %d values, expected %d", f.Names, len(values), len(f.Names))
		}
		for i, name := range f.Names {
			out[name] = values[i]
		}
	}

	if s.Data == nil {
		return out, nil
	}

	var rest []byte
	if s.Data.StartByte < len(content) {
		rest = content[s.Data.StartByte:]
	}

	var sub *Schema
	switch {
	case s.Data.Fixed != nil:
		sub = s.Data.Fixed
	case s.Data.Selector != "":
		sel, ok := out[s.Data.Selector]
		if !ok {
			return nil, fmt.Errorf("selector field %q missing from parsed header", s.Data.Selector)
		}
		selInt, ok := sel.(int)
		if !ok {
			return nil, fmt.Errorf("selector field %q is not an int (got %T)", s.Data.Selector, sel)
		}
		sub = s.Data.Mapping[selInt]
	}

	if sub == nil {
		out["content"] = rest
		return out, nil
	}
	if sub.Ignore {
		return nil, nil
	}

	data, err := sub.Parse(rest)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	if s.Data.UnpackToHeader {
		for k, v := range data {
			out[k] = v
		}
	} else {
		out["content"] = data
	}
	return out, nil
}
