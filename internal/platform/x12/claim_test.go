package x12

import (
	"strings"
	"testing"
)

var testSubscriber = Subscriber{
	PatientID:  "999",
	Family:     "Doe",
	Given:      "Jane",
	StreetLine: "123 Main St",
	City:       "Dallas",
	State:      "TX",
	PostalCode: "75001",
}

func TestGenerateClaim(t *testing.T) {
	doc := GenerateClaim(testSubscriber)

	for _, want := range []string{
		"ST*837*0001*005010X222A1~",
		"NM1*IL*1*Doe*Jane****MI*999~",
		"N3*123 Main St~",
		"N4*Dallas*TX*75001~",
		"CLM*999*150***11:B:1*Y*A*Y*Y~",
		"SV1*HC:99213*150*UN*1***1~",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("claim missing segment %q", want)
		}
	}

	for _, line := range strings.Split(doc, "\n") {
		if !strings.HasSuffix(line, SegmentTerminator) {
			t.Errorf("segment %q not terminated with ~", line)
		}
	}
}

func TestGenerateClaimDefaultsClaimID(t *testing.T) {
	doc := GenerateClaim(Subscriber{})
	if !strings.Contains(doc, "CLM*12345*150*") {
		t.Errorf("expected default claim id 12345, got:\n%s", doc)
	}
}

func TestParseClaimInfo(t *testing.T) {
	doc := GenerateClaim(testSubscriber)

	info, ok := ParseClaimInfo(doc)
	if !ok {
		t.Fatal("expected CLM segment")
	}
	if info.ClaimID != "999" {
		t.Errorf("ClaimID = %q, want 999", info.ClaimID)
	}
	if info.BilledTotal != 150 {
		t.Errorf("BilledTotal = %v, want 150", info.BilledTotal)
	}
}

func TestParseClaimInfoMissingCLM(t *testing.T) {
	if _, ok := ParseClaimInfo(""); ok {
		t.Error("expected no claim info from empty doc")
	}
	if _, ok := ParseClaimInfo("ISA*00~\nGS*HC~"); ok {
		t.Error("expected no claim info without CLM segment")
	}
}

func TestParseClaimInfoToleratesFormatting(t *testing.T) {
	// Newlines inside the document and whitespace around segments are ignored.
	doc := "ISA*00~\n CLM*ABC\n*42***X~ \nSE*1~"
	info, ok := ParseClaimInfo(doc)
	if !ok || info.ClaimID != "ABC" || info.BilledTotal != 42 {
		t.Errorf("info = %+v ok=%v, want ABC/42", info, ok)
	}
}
