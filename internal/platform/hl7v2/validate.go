package hl7v2

import "strings"

// Validation messages returned by Validate. Kept as constants so handler and
// engine tests can assert on them without duplicating prose.
const (
	ErrMissingMSH     = "Missing MSH segment (message must start with MSH)"
	ErrMissingMSH9    = "Missing MSH-9 (message type)"
	ErrADTRequiresPID = "ADT requires PID segment"
	ErrMissingPID3    = "Missing PID-3 (Patient Identifier)"
	WarnMissingPV1    = "Missing PV1 segment (Encounter will not be generated)"
)

// Validate runs structural checks over a raw HL7 v2 message and returns
// blocking errors and advisory warnings. A message that does not start with
// MSH is rejected outright with a single error; nothing else is inspected.
func Validate(raw string) (errors, warnings []string) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, SegMSH) {
		return []string{ErrMissingMSH}, nil
	}

	messageType := MessageType(trimmed)
	if messageType == "" {
		errors = append(errors, ErrMissingMSH9)
	}

	family, _ := SplitMessageType(messageType)
	if family == "ADT" {
		table := ParseSegments(trimmed)
		pid, ok := table.First(SegPID)
		if !ok {
			errors = append(errors, ErrADTRequiresPID)
		} else if pid.Field(3) == "" {
			errors = append(errors, ErrMissingPID3)
		}
		if !table.Has(SegPV1) {
			warnings = append(warnings, WarnMissingPV1)
		}
	}

	return errors, warnings
}
