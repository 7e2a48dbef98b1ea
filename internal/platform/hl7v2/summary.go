package hl7v2

import (
	"strings"
	"time"
)

// Timestamp layouts used across the extractors.
const (
	LayoutDate   = "20060102"     // YYYYMMDD (PID-7)
	LayoutMinute = "200601021504" // YYYYMMDDHHMM (PV1-44)
	LayoutSecond = "20060102150405"
)

// Summary is a lightweight scan of an HL7 v2 message used for routing and
// triage, without full segment extraction.
type Summary struct {
	MessageType      string     `json:"message_type"`
	PatientID        string     `json:"patient_id"`
	PatientClass     string     `json:"patient_class"`
	EncounterPresent bool       `json:"encounter_present"`
	EventTime        *time.Time `json:"event_time,omitempty"`
}

// Summarize scans every line of a raw message and fills a Summary.
// When a segment repeats, the last occurrence wins. All fields are
// best-effort: malformed timestamps are discarded, never reported.
// PV1-44 (admit time) takes precedence over MSH-7 for the event time.
func Summarize(raw string) Summary {
	var s Summary
	var headerTime, admitTime *time.Time

	for _, line := range SplitLines(raw) {
		fields := Segment(strings.Split(line, FieldSeparator))
		switch fields[0] {
		case SegMSH:
			s.MessageType = fields.Field(mshTypeIndex)
			if t, ok := ParseTimestamp(fields.Field(6), LayoutSecond); ok {
				headerTime = &t
			}
		case SegPID:
			s.PatientID = fields.Field(3)
		case SegPV1:
			s.EncounterPresent = true
			s.PatientClass = fields.Field(2)
			if t, ok := ParseTimestamp(fields.Field(44), LayoutMinute); ok {
				admitTime = &t
			}
		}
	}

	s.EventTime = headerTime
	if admitTime != nil {
		s.EventTime = admitTime
	}
	return s
}
