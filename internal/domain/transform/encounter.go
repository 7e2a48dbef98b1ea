package transform

import (
	"fmt"
	"time"

	"github.com/hl7bridge/hl7bridge/internal/platform/fhir"
	"github.com/hl7bridge/hl7bridge/internal/platform/hl7v2"
)

// ActCodeSystem is the terminology system for encounter class codes.
const ActCodeSystem = "http://terminology.hl7.org/CodeSystem/v3-ActCode"

// Encounter is the visit content of a PV1 segment.
type Encounter struct {
	ClassCode string     `json:"class_code"`
	Location  string     `json:"location,omitempty"`
	AdmitTime *time.Time `json:"admit_time,omitempty"`
	PatientID string     `json:"patient_id,omitempty"`
}

// ExtractEncounter reads the first PV1 segment. It returns (nil, nil) when
// no PV1 is present. PV1-2 maps I/O/E to the IMP/AMB/EMER class codes with
// AMB as the default. PV1-3 is kept as the composite location display.
//
// PV1-44 (admit time, YYYYMMDDHHMM) is only considered when at least 12
// characters long; a value of that length that does not parse is an error,
// since a wrong admit time corrupts the derived billing documents.
func ExtractEncounter(table hl7v2.SegmentTable, patientID string) (*Encounter, error) {
	pv1, ok := table.First(hl7v2.SegPV1)
	if !ok {
		return nil, nil
	}

	e := &Encounter{
		ClassCode: classFromCode(pv1.Field(2)),
		Location:  pv1.Field(3),
		PatientID: patientID,
	}

	if admitRaw := pv1.Field(44); len(admitRaw) >= 12 {
		t, ok := hl7v2.ParseTimestamp(admitRaw, hl7v2.LayoutMinute)
		if !ok {
			return nil, fmt.Errorf("transform: invalid PV1-44 admit timestamp %q", admitRaw)
		}
		e.AdmitTime = &t
	}
	return e, nil
}

func classFromCode(code string) string {
	switch code {
	case "I":
		return "IMP"
	case "O":
		return "AMB"
	case "E":
		return "EMER"
	}
	return "AMB"
}

// ToFHIR renders the encounter as a FHIR Encounter resource map.
func (e *Encounter) ToFHIR() map[string]interface{} {
	resource := map[string]interface{}{
		"resourceType": "Encounter",
		"status":       "in-progress",
		"class": fhir.Coding{
			System: ActCodeSystem,
			Code:   e.ClassCode,
		},
	}

	if e.PatientID != "" {
		resource["subject"] = fhir.Reference{Reference: "Patient/" + e.PatientID}
	}

	period := map[string]interface{}{}
	if e.AdmitTime != nil {
		period["start"] = e.AdmitTime.Format("2006-01-02T15:04:05")
	}
	resource["period"] = period

	if e.Location != "" {
		resource["location"] = []map[string]interface{}{
			{"location": fhir.Reference{Display: e.Location}},
		}
	}
	return resource
}
