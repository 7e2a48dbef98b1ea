package transform

import (
	"testing"
	"time"

	"github.com/hl7bridge/hl7bridge/internal/platform/fhir"
	"github.com/hl7bridge/hl7bridge/internal/platform/hl7v2"
)

func TestExtractEncounter(t *testing.T) {
	e, err := ExtractEncounter(hl7v2.ParseSegments(minimalADT), "999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e == nil {
		t.Fatal("expected encounter")
	}

	if e.ClassCode != "IMP" {
		t.Errorf("ClassCode = %q, want IMP", e.ClassCode)
	}
	if e.Location != "ICU^2^1" {
		t.Errorf("Location = %q, want ICU^2^1", e.Location)
	}
	if e.PatientID != "999" {
		t.Errorf("PatientID = %q, want 999", e.PatientID)
	}
	want := time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)
	if e.AdmitTime == nil || !e.AdmitTime.Equal(want) {
		t.Errorf("AdmitTime = %v, want %v", e.AdmitTime, want)
	}
}

func TestExtractEncounterNoPV1(t *testing.T) {
	table := hl7v2.ParseSegments("MSH|^~\\&|||||||ADT^A01\nPID|1||999")
	e, err := ExtractEncounter(table, "999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e != nil {
		t.Errorf("expected nil encounter, got %+v", e)
	}
}

func TestExtractEncounterClassMapping(t *testing.T) {
	tests := []struct{ code, want string }{
		{"I", "IMP"},
		{"O", "AMB"},
		{"E", "EMER"},
		{"X", "AMB"},
		{"", "AMB"},
	}
	for _, tt := range tests {
		if got := classFromCode(tt.code); got != tt.want {
			t.Errorf("classFromCode(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestExtractEncounterMalformedAdmitTime(t *testing.T) {
	raw := "MSH|^~\\&|||||||ADT^A01\nPID|1||999\n" +
		"PV1|1|I|ICU|||||||||||||||||||||||||||||||||||||||||NOTATIMESTAMP"
	if _, err := ExtractEncounter(hl7v2.ParseSegments(raw), "999"); err == nil {
		t.Fatal("expected error for 12+ character non-timestamp PV1-44")
	}
}

func TestExtractEncounterAdmitTimeTrailingGarbage(t *testing.T) {
	raw := "MSH|^~\\&|||||||ADT^A01\nPID|1||999\n" +
		"PV1|1|I|ICU|||||||||||||||||||||||||||||||||||||||||202501011230XX"
	if _, err := ExtractEncounter(hl7v2.ParseSegments(raw), "999"); err == nil {
		t.Fatal("expected error for admit timestamp with a non-numeric remainder")
	}
}

func TestExtractEncounterSecondsPrecisionAdmitTime(t *testing.T) {
	raw := "MSH|^~\\&|||||||ADT^A01\nPID|1||999\n" +
		"PV1|1|I|ICU|||||||||||||||||||||||||||||||||||||||||20250101123045"
	e, err := ExtractEncounter(hl7v2.ParseSegments(raw), "999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)
	if e.AdmitTime == nil || !e.AdmitTime.Equal(want) {
		t.Errorf("AdmitTime = %v, want minute precision %v", e.AdmitTime, want)
	}
}

func TestExtractEncounterShortAdmitTimeIgnored(t *testing.T) {
	raw := "MSH|^~\\&|||||||ADT^A01\nPID|1||999\n" +
		"PV1|1|E|ER|||||||||||||||||||||||||||||||||||||||||2025"
	e, err := ExtractEncounter(hl7v2.ParseSegments(raw), "999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.AdmitTime != nil {
		t.Errorf("AdmitTime = %v, want nil for short value", e.AdmitTime)
	}
	if e.ClassCode != "EMER" {
		t.Errorf("ClassCode = %q, want EMER", e.ClassCode)
	}
}

func TestEncounterToFHIR(t *testing.T) {
	e, err := ExtractEncounter(hl7v2.ParseSegments(minimalADT), "999")
	if err != nil {
		t.Fatal(err)
	}
	resource := e.ToFHIR()

	if resource["status"] != "in-progress" {
		t.Errorf("status = %v", resource["status"])
	}
	class, ok := resource["class"].(fhir.Coding)
	if !ok || class.Code != "IMP" || class.System != ActCodeSystem {
		t.Errorf("class = %v", resource["class"])
	}
	subject, ok := resource["subject"].(fhir.Reference)
	if !ok || subject.Reference != "Patient/999" {
		t.Errorf("subject = %v", resource["subject"])
	}
	period, ok := resource["period"].(map[string]interface{})
	if !ok || period["start"] != "2025-01-01T12:30:00" {
		t.Errorf("period = %v", resource["period"])
	}
}

func TestEncounterToFHIREmptyPeriod(t *testing.T) {
	e := &Encounter{ClassCode: "AMB"}
	resource := e.ToFHIR()

	period, ok := resource["period"].(map[string]interface{})
	if !ok || len(period) != 0 {
		t.Errorf("period = %v, want empty map", resource["period"])
	}
	if _, ok := resource["subject"]; ok {
		t.Error("subject should be omitted without a patient id")
	}
}
