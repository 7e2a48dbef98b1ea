package transform

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hl7bridge/hl7bridge/internal/platform/x12"
)

func TestTransformADT(t *testing.T) {
	result, err := Transform(minimalADT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.MessageType != "ADT^A01" {
		t.Errorf("MessageType = %q", result.MessageType)
	}
	if result.Profile != "HL7 v2 ADT (Admission (Inpatient/ER -> Admit))" {
		t.Errorf("Profile = %q", result.Profile)
	}
	if result.Source.SendingApplication != "HIS" {
		t.Errorf("Source = %+v", result.Source)
	}
	if result.Patient == nil || result.Patient.ID != "999" {
		t.Fatalf("Patient = %+v", result.Patient)
	}
	if result.Encounter == nil || result.Encounter.ClassCode != "IMP" {
		t.Fatalf("Encounter = %+v", result.Encounter)
	}

	// Billing chain: claim id is the patient id, billed 150, paid 80%.
	if !strings.Contains(result.Claim837, "CLM*999*150*") {
		t.Errorf("claim missing CLM segment:\n%s", result.Claim837)
	}
	if !strings.Contains(result.Remittance835, "CLP*999*1*150.00*120.00*30.00*") {
		t.Errorf("remittance missing CLP segment:\n%s", result.Remittance835)
	}
	if result.Reconciliation == nil {
		t.Fatal("expected reconciliation")
	}
	if result.Reconciliation.Status != x12.StatusPaid || result.Reconciliation.PaidAmount != 120 {
		t.Errorf("Reconciliation = %+v", result.Reconciliation)
	}
	if result.Lab != nil {
		t.Error("ADT result must not carry lab content")
	}
}

func TestTransformADTWithoutPV1SkipsBilling(t *testing.T) {
	raw := "MSH|^~\\&|HIS|HOSP|EMR|CLINIC|||ADT^A04|MSG002|P|2.3\nPID|1||777||Park^Min||19881005|F"
	result, err := Transform(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Patient == nil || result.Patient.ID != "777" {
		t.Fatalf("Patient = %+v", result.Patient)
	}
	if result.Encounter != nil {
		t.Errorf("Encounter = %+v, want nil", result.Encounter)
	}
	if result.Claim837 != "" || result.Remittance835 != "" || result.Reconciliation != nil {
		t.Error("billing chain must require both patient and encounter")
	}
}

func TestTransformORU(t *testing.T) {
	result, err := Transform(minimalORU)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Lab == nil {
		t.Fatal("expected lab result")
	}
	if result.Lab.PatientID != "555" || len(result.Lab.Observations) != 2 {
		t.Errorf("Lab = %+v", result.Lab)
	}
	if result.Patient != nil || result.Claim837 != "" {
		t.Error("ORU result must not carry ADT content")
	}
}

func TestTransformUnknownMessageType(t *testing.T) {
	for _, raw := range []string{
		"",
		"not hl7",
		"MSH|^~\\&|HIS|HOSP|EMR|CLINIC|||",
	} {
		if _, err := Transform(raw); !errors.Is(err, ErrUnknownMessageType) {
			t.Errorf("Transform(%q) error = %v, want ErrUnknownMessageType", raw, err)
		}
	}
}

func TestTransformUnsupportedMessageType(t *testing.T) {
	raw := "MSH|^~\\&|HIS|HOSP|EMR|CLINIC|||SIU^S12|MSG003|P|2.3"
	_, err := Transform(raw)
	if !errors.Is(err, ErrUnsupportedMessageType) {
		t.Fatalf("error = %v, want ErrUnsupportedMessageType", err)
	}
	if !strings.Contains(err.Error(), "SIU^S12") {
		t.Errorf("error %q should name the message type", err)
	}
}

func TestTransformMalformedAdmitTimeFails(t *testing.T) {
	raw := "MSH|^~\\&|||||||ADT^A01\nPID|1||999\n" +
		"PV1|1|I|ICU|||||||||||||||||||||||||||||||||||||||||NOTATIMESTAMP"
	if _, err := Transform(raw); err == nil {
		t.Fatal("expected error for malformed admit timestamp")
	}
}

func TestTransformIsDeterministic(t *testing.T) {
	first, err := Transform(minimalADT)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Transform(minimalADT)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated transformation of the same input diverged")
	}
}
