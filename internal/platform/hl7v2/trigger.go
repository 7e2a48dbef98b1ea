package hl7v2

import (
	"fmt"
	"strings"
)

// mshTypeIndex is the 0-based index of MSH-9 (message type) in a
// pipe-split MSH line.
const mshTypeIndex = 8

// adtEventLabels maps ADT trigger events to analyst-friendly descriptions.
var adtEventLabels = map[string]string{
	"A01": "Admission (Inpatient/ER -> Admit)",
	"A02": "Transfer (Bed/Unit Change)",
	"A03": "Discharge",
	"A04": "Registration (Outpatient/ER)",
	"A08": "Update Patient Info",
}

var oruEventLabels = map[string]string{
	"R01": "Lab Result (Observation Report)",
}

// adtEventReasons annotates why downstream systems care about an event.
var adtEventReasons = map[string]string{
	"A01": "Start inpatient workflow: care coordination + billing",
	"A03": "Close encounter: discharge workflow + billing finalization",
	"A08": "Update demographics/visit data; downstream reconciliation",
}

var oruEventReasons = map[string]string{
	"R01": "Publish lab results: clinical review + charge capture",
}

// TriggerEvent describes the trigger-event half of an MSH-9 message type,
// with a human-readable label and a business-reason annotation.
type TriggerEvent struct {
	Code           string `json:"code"`
	Description    string `json:"description"`
	BusinessReason string `json:"business_reason"`
}

// ResolveTrigger splits a message type like "ADT^A01" into family and event
// and looks up the label tables. Unknown events fall back to a generic
// "<family> Event <code>" description; unknown families yield empty labels.
func ResolveTrigger(messageType string) TriggerEvent {
	family, event := SplitMessageType(messageType)

	switch family {
	case "ADT":
		return TriggerEvent{
			Code:           event,
			Description:    eventLabel(adtEventLabels, "ADT", event),
			BusinessReason: adtEventReasons[event],
		}
	case "ORU":
		return TriggerEvent{
			Code:           event,
			Description:    eventLabel(oruEventLabels, "ORU", event),
			BusinessReason: oruEventReasons[event],
		}
	}
	return TriggerEvent{Code: event}
}

// MessageProfile renders a display label like "HL7 v2 ADT (Admission ...)".
func MessageProfile(messageType string) string {
	if messageType == "" {
		return "HL7 v2 (Unknown)"
	}

	family, event := SplitMessageType(messageType)
	switch family {
	case "ADT":
		return fmt.Sprintf("HL7 v2 ADT (%s)", eventLabel(adtEventLabels, "ADT", event))
	case "ORU":
		return fmt.Sprintf("HL7 v2 ORU (%s)", eventLabel(oruEventLabels, "ORU", event))
	}
	if event != "" {
		return fmt.Sprintf("HL7 v2 %s (%s)", family, event)
	}
	return fmt.Sprintf("HL7 v2 %s", family)
}

func eventLabel(labels map[string]string, family, event string) string {
	if label, ok := labels[event]; ok {
		return label
	}
	code := event
	if code == "" {
		code = "(unknown)"
	}
	return fmt.Sprintf("%s Event %s", family, code)
}

// SplitMessageType splits "ADT^A01" into its family and event codes.
// Either half may be empty.
func SplitMessageType(messageType string) (family, event string) {
	parts := strings.Split(messageType, ComponentSeparator)
	family = parts[0]
	if len(parts) > 1 {
		event = parts[1]
	}
	return family, event
}

// MessageType extracts the MSH-9 message type (e.g. "ADT^A01") from the
// first MSH line of a raw message, or "" when the header or field is absent.
func MessageType(raw string) string {
	msh := FirstLineWithPrefix(raw, SegMSH)
	if msh == "" {
		return ""
	}
	return Segment(strings.Split(msh, FieldSeparator)).Field(mshTypeIndex)
}

// SourceContext is the "who sent it" context pulled from the MSH segment.
type SourceContext struct {
	Standard           string `json:"standard"`
	InterfaceType      string `json:"interface_type"`
	SendingApplication string `json:"sending_application"`
	SendingFacility    string `json:"sending_facility"`
}

// ExtractSourceContext pulls MSH-3 (sending application), MSH-4 (sending
// facility), and the family half of MSH-9 from a raw message. All fields are
// best-effort; a missing header yields the zero context.
func ExtractSourceContext(raw string) SourceContext {
	ctx := SourceContext{Standard: "HL7 v2"}

	msh := FirstLineWithPrefix(raw, SegMSH)
	if msh == "" {
		return ctx
	}

	fields := Segment(strings.Split(msh, FieldSeparator))
	ctx.SendingApplication = fields.Field(2)
	ctx.SendingFacility = fields.Field(3)
	if mt := fields.Field(mshTypeIndex); mt != "" {
		ctx.InterfaceType, _ = SplitMessageType(mt)
	}
	return ctx
}
