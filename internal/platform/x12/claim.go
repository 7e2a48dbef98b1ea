// Package x12 generates and parses the simplified X12 837 (professional
// claim) and 835 (remittance advice) documents used by the billing
// derivation pipeline. Segments are star-delimited, terminated by "~", and
// joined with newlines. Envelope values are fixed demo-grade placeholders;
// only the subscriber loop and the CLM/CLP/CAS money segments vary.
package x12

import (
	"strconv"
	"strings"
)

// SegmentTerminator ends every X12 segment.
const SegmentTerminator = "~"

// defaultBilledTotal is the fixed demo charge for the single service line.
const defaultBilledTotal = 150

// defaultClaimID is used when the subscriber carries no patient identifier.
const defaultClaimID = "12345"

// Subscriber carries the patient demographics rendered into the 837
// subscriber loop. The claim id is the patient id.
type Subscriber struct {
	PatientID  string
	Family     string
	Given      string
	StreetLine string
	City       string
	State      string
	PostalCode string
}

// GenerateClaim renders a single-claim 837P document for the subscriber.
// The billed total and the service line are fixed; the claim id defaults to
// "12345" when the subscriber has no patient identifier.
func GenerateClaim(sub Subscriber) string {
	claimID := sub.PatientID
	if claimID == "" {
		claimID = defaultClaimID
	}
	total := strconv.Itoa(defaultBilledTotal)

	segments := []string{
		"ISA*00*          *00*          *ZZ*SENDERID      *ZZ*RECEIVERID    *250101*1200*^*00501*000000001*0*T*:~",
		"GS*HC*SENDERID*RECEIVERID*20250101*1200*1*X*005010X222A1~",
		"ST*837*0001*005010X222A1~",
		"BHT*0019*00*0123*20250102*1200*CH~",
		"NM1*85*2*GOOD HEALTH CLINIC*****XX*1234567893~",
		"N3*123 MAIN ST~",
		"N4*DALLAS*TX*75001~",
		"HL*1**20*1~",
		"HL*2*1*22*0~",
		"SBR*P*18*******MC~",
		"NM1*IL*1*" + sub.Family + "*" + sub.Given + "****MI*" + claimID + "~",
		"N3*" + sub.StreetLine + "~",
		"N4*" + sub.City + "*" + sub.State + "*" + sub.PostalCode + "~",
		"CLM*" + claimID + "*" + total + "***11:B:1*Y*A*Y*Y~",
		"LX*1~",
		"SV1*HC:99213*150*UN*1***1~",
		"SE*12*0001~",
		"GE*1*1~",
		"IEA*1*000000001~",
	}
	return strings.Join(segments, "\n")
}

// ClaimInfo is the minimal claim content recovered from an 837's CLM segment.
type ClaimInfo struct {
	ClaimID     string  `json:"claim_id"`
	BilledTotal float64 `json:"billed_total"`
}

// ParseClaimInfo extracts the claim id and billed total from the first CLM
// segment of an 837 document. The boolean is false when the document is
// empty or carries no CLM segment. An unparseable amount is treated as 0.
func ParseClaimInfo(doc string) (ClaimInfo, bool) {
	clm, ok := firstSegmentWithPrefix(doc, "CLM*")
	if !ok {
		return ClaimInfo{}, false
	}

	parts := strings.Split(clm, "*")
	var info ClaimInfo
	if len(parts) > 1 {
		info.ClaimID = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		if total, err := strconv.ParseFloat(parts[2], 64); err == nil {
			info.BilledTotal = total
		}
	}
	return info, true
}

// splitSegments strips newlines, splits on the segment terminator, and
// returns the non-empty trimmed segments without their terminators.
func splitSegments(doc string) []string {
	doc = strings.ReplaceAll(doc, "\n", "")
	var segments []string
	for _, seg := range strings.Split(doc, SegmentTerminator) {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

func firstSegmentWithPrefix(doc, prefix string) (string, bool) {
	for _, seg := range splitSegments(doc) {
		if strings.HasPrefix(seg, prefix) {
			return seg, true
		}
	}
	return "", false
}
