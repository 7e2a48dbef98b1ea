package transform

import (
	"fmt"
	"strings"

	"github.com/hl7bridge/hl7bridge/internal/platform/fhir"
	"github.com/hl7bridge/hl7bridge/internal/platform/hl7v2"
)

// LOINCSystem identifies lab codes on observations and reports.
const LOINCSystem = "http://loinc.org"

// Observation is one OBX result line.
type Observation struct {
	SetID          string  `json:"set_id"`
	ValueType      string  `json:"value_type"`
	Code           string  `json:"code"`
	Description    string  `json:"description"`
	Value          string  `json:"value"`
	Unit           string  `json:"unit"`
	ReferenceRange string  `json:"reference_range"`
	AbnormalFlag   *string `json:"abnormal_flag"`
}

// LabOrder is the OBR order context shared by a message's observations.
type LabOrder struct {
	FillerID    string `json:"filler_id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// LabResult is the extracted content of an ORU message.
type LabResult struct {
	MessageType  string        `json:"message_type"`
	PatientID    string        `json:"patient_id"`
	Order        LabOrder      `json:"order"`
	Observations []Observation `json:"observations"`
}

// ExtractLabResult scans an ORU message for its PID, OBR, and OBX segments.
// The first PID and OBR win; every OBX becomes an Observation in order.
// The message type defaults to ORU^R01 when MSH-9 is absent.
//
// OBX-8 (abnormal flag) is nil when the segment ends before the field and
// empty when the field is present but blank; downstream consumers treat the
// two differently when deciding whether a result was flagged at all.
func ExtractLabResult(raw string) *LabResult {
	result := &LabResult{MessageType: "ORU^R01"}
	if mt := hl7v2.MessageType(raw); mt != "" {
		result.MessageType = mt
	}

	var pidSeen, obrSeen bool
	for _, line := range hl7v2.SplitLines(raw) {
		fields := hl7v2.Segment(strings.Split(line, hl7v2.FieldSeparator))
		switch fields[0] {
		case hl7v2.SegPID:
			if pidSeen {
				continue
			}
			pidSeen = true
			result.PatientID = fields.Field(3)
		case hl7v2.SegOBR:
			if obrSeen {
				continue
			}
			obrSeen = true
			result.Order = LabOrder{
				FillerID:    fields.Field(3),
				Code:        fields.Component(4, 0),
				Description: fields.Component(4, 1),
				Date:        fields.Field(7),
			}
		case hl7v2.SegOBX:
			obs := Observation{
				SetID:          fields.Field(1),
				ValueType:      fields.Field(2),
				Code:           fields.Component(3, 0),
				Description:    fields.Component(3, 1),
				Value:          fields.Field(5),
				Unit:           fields.Field(6),
				ReferenceRange: fields.Field(7),
			}
			if len(fields) > 8 {
				flag := fields[8]
				obs.AbnormalFlag = &flag
			}
			result.Observations = append(result.Observations, obs)
		}
	}
	return result
}

// ObservationsToFHIR renders each OBX as a FHIR Observation map with ids
// obx-1, obx-2, ... in message order.
func (r *LabResult) ObservationsToFHIR() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(r.Observations))
	for i, obs := range r.Observations {
		resource := map[string]interface{}{
			"resourceType": "Observation",
			"id":           fmt.Sprintf("obx-%d", i+1),
			"status":       "final",
			"code": fhir.CodeableConcept{
				Coding: []fhir.Coding{{
					System:  LOINCSystem,
					Code:    obs.Code,
					Display: obs.Description,
				}},
			},
			"valueString": obs.Value,
		}
		if obs.Unit != "" || obs.ReferenceRange != "" {
			resource["note"] = []map[string]interface{}{
				{"text": fmt.Sprintf("Unit: %s  RefRange: %s", obs.Unit, obs.ReferenceRange)},
			}
		}
		if r.PatientID != "" {
			resource["subject"] = fhir.Reference{Reference: "Patient/" + r.PatientID}
		}
		if r.Order.Date != "" {
			resource["effectiveDateTime"] = r.Order.Date
		}
		out = append(out, resource)
	}
	return out
}

// ReportToFHIR renders the order as a FHIR DiagnosticReport map whose
// result list references the observations by their generated ids.
func (r *LabResult) ReportToFHIR() map[string]interface{} {
	refs := make([]fhir.Reference, 0, len(r.Observations))
	for i := range r.Observations {
		refs = append(refs, fhir.Reference{Reference: fmt.Sprintf("Observation/obx-%d", i+1)})
	}

	report := map[string]interface{}{
		"resourceType": "DiagnosticReport",
		"status":       "final",
		"code": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System:  LOINCSystem,
				Code:    r.Order.Code,
				Display: r.Order.Description,
			}},
		},
		"result": refs,
	}
	if r.PatientID != "" {
		report["subject"] = fhir.Reference{Reference: "Patient/" + r.PatientID}
	}
	if r.Order.Date != "" {
		report["effectiveDateTime"] = r.Order.Date
	}
	return report
}
