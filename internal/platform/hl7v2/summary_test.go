package hl7v2

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	s := Summarize(sampleADT)

	if s.MessageType != "ADT^A01" {
		t.Errorf("MessageType = %q, want ADT^A01", s.MessageType)
	}
	if s.PatientID != "12345^^^HOSP" {
		t.Errorf("PatientID = %q, want raw PID-3", s.PatientID)
	}
	if s.PatientClass != "I" {
		t.Errorf("PatientClass = %q, want I", s.PatientClass)
	}
	if !s.EncounterPresent {
		t.Error("EncounterPresent = false, want true")
	}

	// PV1-44 wins over MSH-7.
	want := time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)
	if s.EventTime == nil || !s.EventTime.Equal(want) {
		t.Errorf("EventTime = %v, want %v", s.EventTime, want)
	}
}

func TestSummarizeFallsBackToHeaderTime(t *testing.T) {
	raw := "MSH|^~\\&|HIS|HOSP|EMR|CLINIC|20250101120000||ADT^A04|MSG003|P|2.3\nPID|1||777"
	s := Summarize(raw)

	want := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if s.EventTime == nil || !s.EventTime.Equal(want) {
		t.Errorf("EventTime = %v, want MSH-7 %v", s.EventTime, want)
	}
	if s.EncounterPresent {
		t.Error("EncounterPresent = true without PV1")
	}
}

func TestSummarizeLastSegmentWins(t *testing.T) {
	raw := "MSH|^~\\&|HIS|HOSP|EMR|CLINIC|||ADT^A08|MSG004|P|2.3\n" +
		"PID|1||first\n" +
		"PID|1||second"
	s := Summarize(raw)
	if s.PatientID != "second" {
		t.Errorf("PatientID = %q, want last PID to win", s.PatientID)
	}
}

func TestSummarizeDiscardsMalformedTimestamps(t *testing.T) {
	raw := "MSH|^~\\&|HIS|HOSP|EMR|CLINIC|garbage||ADT^A01|MSG005|P|2.3\n" +
		"PID|1||123\n" +
		"PV1|1|O|CLINIC^1"
	s := Summarize(raw)
	if s.EventTime != nil {
		t.Errorf("EventTime = %v, want nil for malformed timestamps", s.EventTime)
	}
	if s.PatientClass != "O" {
		t.Errorf("PatientClass = %q, want O", s.PatientClass)
	}
}

func TestSummarizeDiscardsAdmitTimeWithTrailingGarbage(t *testing.T) {
	raw := "MSH|^~\\&|HIS|HOSP|EMR|CLINIC|20250101120000||ADT^A01|MSG006|P|2.3\n" +
		"PID|1||123\n" +
		"PV1|1|I|ICU^2^1|||||||||||||||||||||||||||||||||||||||||202501011230XX"
	s := Summarize(raw)

	// The malformed PV1-44 is dropped; MSH-7 still supplies the event time.
	want := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if s.EventTime == nil || !s.EventTime.Equal(want) {
		t.Errorf("EventTime = %v, want MSH-7 %v", s.EventTime, want)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	s := Summarize("")
	if s.MessageType != "" || s.PatientID != "" || s.EncounterPresent || s.EventTime != nil {
		t.Errorf("expected zero summary, got %+v", s)
	}
}
