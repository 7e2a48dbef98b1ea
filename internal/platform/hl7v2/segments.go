package hl7v2

import (
	"strings"
	"time"
)

// Well-known segment tags handled by the extractors.
const (
	SegMSH = "MSH" // message header
	SegPID = "PID" // patient identification
	SegPV1 = "PV1" // patient visit
	SegOBR = "OBR" // observation request (lab order)
	SegOBX = "OBX" // observation result
)

// FieldSeparator and ComponentSeparator are the HL7 v2 delimiters this
// package understands. Repetition and escape characters are not modeled.
const (
	FieldSeparator     = "|"
	ComponentSeparator = "^"
)

// Segment is a single pipe-delimited line split into fields.
// Fields[0] is the segment name (e.g. "PID").
type Segment []string

// Field returns the field at the given index, or "" when the segment is
// shorter than the index. All extractors go through this accessor so that
// short segments never cause an out-of-range failure.
func (s Segment) Field(index int) string {
	if index < 0 || index >= len(s) {
		return ""
	}
	return s[index]
}

// Component splits the field at fieldIndex on the component separator and
// returns the component at compIndex, or "" when either is out of range.
func (s Segment) Component(fieldIndex, compIndex int) string {
	return ComponentAt(s.Field(fieldIndex), compIndex)
}

// ComponentAt returns the compIndex-th component of a composite field value,
// or "" when the field has fewer components.
func ComponentAt(field string, compIndex int) string {
	if field == "" {
		return ""
	}
	comps := strings.Split(field, ComponentSeparator)
	if compIndex < 0 || compIndex >= len(comps) {
		return ""
	}
	return comps[compIndex]
}

// SegmentTable groups the segments of one message by name, preserving the
// order in which segments of the same name appeared.
type SegmentTable map[string][]Segment

// First returns the first segment with the given name. The boolean reports
// whether any such segment exists; a missing name is not an error.
func (t SegmentTable) First(name string) (Segment, bool) {
	list := t[name]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Has reports whether at least one segment with the given name is present.
func (t SegmentTable) Has(name string) bool {
	return len(t[name]) > 0
}

// All returns every segment with the given name in message order.
func (t SegmentTable) All(name string) []Segment {
	return t[name]
}

// ParseSegments splits raw HL7 v2 text into a SegmentTable. Lines may be
// separated by \r, \n, or \r\n; blank lines are discarded. No validation is
// performed here — absent segments simply yield no entries.
func ParseSegments(raw string) SegmentTable {
	table := SegmentTable{}
	for _, line := range SplitLines(raw) {
		fields := strings.Split(line, FieldSeparator)
		name := fields[0]
		table[name] = append(table[name], Segment(fields))
	}
	return table
}

// SplitLines normalizes line endings and returns the non-blank lines of a
// raw message, trimmed of surrounding whitespace.
func SplitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// FirstLineWithPrefix returns the first line of a raw message starting with
// the given prefix, or "" if none exists.
func FirstLineWithPrefix(raw, prefix string) string {
	for _, line := range SplitLines(raw) {
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
	return ""
}

// ParseTimestamp parses an HL7 numeric timestamp against the given layout
// (e.g. "20060102150405" for YYYYMMDDHHMMSS). A value longer than the layout
// is truncated, but only when the remainder is numeric: extra precision
// (seconds on a minute layout) is fine, trailing garbage is not. The boolean
// is false when the value does not parse; callers decide whether that is
// fatal.
func ParseTimestamp(value, layout string) (time.Time, bool) {
	if len(value) < len(layout) || !allDigits(value[len(layout):]) {
		return time.Time{}, false
	}
	t, err := time.Parse(layout, value[:len(layout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
