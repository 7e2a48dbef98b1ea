package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hl7bridge/hl7bridge/internal/platform/hl7v2"
	"github.com/hl7bridge/hl7bridge/internal/platform/x12"
)

// ErrUnknownMessageType is returned when MSH-9 cannot be determined.
var ErrUnknownMessageType = errors.New("transform: unable to determine message type (MSH-9 missing)")

// ErrUnsupportedMessageType is returned for message families the pipeline
// does not handle. The wrapped error text names the offending type.
var ErrUnsupportedMessageType = errors.New("transform: unsupported message type")

// Result is the full output of one message transformation. ADT messages
// fill the patient/encounter/billing fields; ORU messages fill Lab. The
// billing chain is only derived when both a patient and an encounter were
// extracted.
type Result struct {
	MessageType    string              `json:"message_type"`
	Profile        string              `json:"message_profile"`
	Trigger        hl7v2.TriggerEvent  `json:"trigger_event"`
	Source         hl7v2.SourceContext `json:"source_context"`
	RawHL7         string              `json:"raw_hl7"`
	Patient        *Patient            `json:"patient,omitempty"`
	Encounter      *Encounter          `json:"encounter,omitempty"`
	Claim837       string              `json:"x12_837,omitempty"`
	Remittance835  string              `json:"x12_835,omitempty"`
	Reconciliation *x12.Reconciliation `json:"claim_reconciliation,omitempty"`
	Lab            *LabResult          `json:"lab,omitempty"`
}

// Transform runs the full pipeline over a raw HL7 v2 message.
//
// ADT: extract patient and encounter, then derive the 837 claim, simulate a
// paid 835 remittance, and reconcile the two. ORU: extract the lab report.
// A message without MSH-9 fails with ErrUnknownMessageType; any other
// family fails with ErrUnsupportedMessageType. Transform is deterministic:
// the same input always produces the same result.
func Transform(raw string) (*Result, error) {
	messageType := hl7v2.MessageType(raw)
	if messageType == "" {
		return nil, ErrUnknownMessageType
	}

	result := &Result{
		MessageType: messageType,
		Profile:     hl7v2.MessageProfile(messageType),
		Trigger:     hl7v2.ResolveTrigger(messageType),
		Source:      hl7v2.ExtractSourceContext(raw),
		RawHL7:      raw,
	}

	switch {
	case strings.HasPrefix(messageType, "ADT"):
		table := hl7v2.ParseSegments(raw)

		result.Patient = ExtractPatient(table)
		patientID := ""
		if result.Patient != nil {
			patientID = result.Patient.ID
		}

		encounter, err := ExtractEncounter(table, patientID)
		if err != nil {
			return nil, err
		}
		result.Encounter = encounter

		if result.Patient != nil && result.Encounter != nil {
			result.Claim837 = x12.GenerateClaim(subscriberFrom(result.Patient))
			result.Remittance835 = x12.GenerateRemittance(result.Claim837, x12.OutcomePaid)
			rec := x12.Reconcile(result.Claim837, result.Remittance835)
			result.Reconciliation = &rec
		}
		return result, nil

	case strings.HasPrefix(messageType, "ORU"):
		result.Lab = ExtractLabResult(raw)
		return result, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedMessageType, messageType)
}

func subscriberFrom(p *Patient) x12.Subscriber {
	return x12.Subscriber{
		PatientID:  p.ID,
		Family:     p.Family,
		Given:      p.Given,
		StreetLine: p.AddressLine,
		City:       p.City,
		State:      p.State,
		PostalCode: p.PostalCode,
	}
}
