// Package transform turns raw HL7 v2 messages into FHIR-shaped clinical
// resources and derived X12 billing documents. ADT messages yield a
// Patient, an Encounter, and the 837/835/reconciliation chain; ORU messages
// yield a DiagnosticReport with its Observations.
package transform

import (
	"github.com/hl7bridge/hl7bridge/internal/platform/fhir"
	"github.com/hl7bridge/hl7bridge/internal/platform/hl7v2"
)

// MRNSystem identifies the hospital medical record number namespace on
// patient identifiers.
const MRNSystem = "urn:example:hospital-mrn"

// Patient is the demographic content of a PID segment.
type Patient struct {
	ID          string `json:"id"`
	Family      string `json:"family"`
	Given       string `json:"given"`
	Gender      string `json:"gender"`
	BirthDate   string `json:"birth_date,omitempty"`
	AddressLine string `json:"address_line,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
}

// ExtractPatient reads the first PID segment of a message. It returns nil
// when no PID is present; individual missing fields yield empty values.
//
// PID-3.1 is the patient id, PID-5 the family^given name, PID-7 the birth
// date (YYYYMMDD, reformatted with dashes), PID-8 the administrative gender
// (M/F, anything else is "unknown"), and PID-11 the address.
func ExtractPatient(table hl7v2.SegmentTable) *Patient {
	pid, ok := table.First(hl7v2.SegPID)
	if !ok {
		return nil
	}

	p := &Patient{
		ID:          pid.Component(3, 0),
		Family:      pid.Component(5, 0),
		Given:       pid.Component(5, 1),
		Gender:      genderFromCode(pid.Field(8)),
		BirthDate:   formatBirthDate(pid.Field(7)),
		AddressLine: pid.Component(11, 0),
		City:        pid.Component(11, 2),
		State:       pid.Component(11, 3),
		PostalCode:  pid.Component(11, 4),
	}
	return p
}

func genderFromCode(code string) string {
	switch code {
	case "M":
		return "male"
	case "F":
		return "female"
	}
	return "unknown"
}

// formatBirthDate rewrites YYYYMMDD as YYYY-MM-DD. The value is not
// validated; short inputs produce a correspondingly short result and an
// empty input stays empty.
func formatBirthDate(raw string) string {
	if raw == "" {
		return ""
	}
	return slice(raw, 0, 4) + "-" + slice(raw, 4, 6) + "-" + slice(raw, 6, 8)
}

func slice(s string, from, to int) string {
	if from > len(s) {
		from = len(s)
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}

// ToFHIR renders the patient as a FHIR Patient resource map.
func (p *Patient) ToFHIR() map[string]interface{} {
	identifiers := []fhir.Identifier{}
	if p.ID != "" {
		identifiers = append(identifiers, fhir.Identifier{System: MRNSystem, Value: p.ID})
	}

	var given []string
	if p.Given != "" {
		given = []string{p.Given}
	}

	var line []string
	if p.AddressLine != "" {
		line = []string{p.AddressLine}
	}

	resource := map[string]interface{}{
		"resourceType": "Patient",
		"identifier":   identifiers,
		"name":         []fhir.HumanName{{Family: p.Family, Given: given}},
		"gender":       p.Gender,
		"address": []fhir.Address{{
			Line:       line,
			City:       p.City,
			State:      p.State,
			PostalCode: p.PostalCode,
		}},
	}
	if p.ID != "" {
		resource["id"] = p.ID
	}
	if p.BirthDate != "" {
		resource["birthDate"] = p.BirthDate
	}
	return resource
}
