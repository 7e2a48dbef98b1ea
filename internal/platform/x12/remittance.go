package x12

import (
	"fmt"
	"math"
	"strings"
)

// Remittance outcomes accepted by GenerateRemittance. Any other value is
// coerced to OutcomePaid.
const (
	OutcomePaid   = "paid"
	OutcomeDenied = "denied"
)

// CLP claim status codes used in generated remittances.
const (
	clpStatusPaid   = "1"
	clpStatusDenied = "4"
)

// GenerateRemittance renders an 835 remittance advice for a claim document.
//
// For "paid", the payer covers 80% of the billed total, the remainder
// becomes patient responsibility and, when positive, is reported as a
// CAS*PR*1 adjustment. For "denied", nothing is paid and the full billed
// amount is written off with a CAS*CO*45 adjustment. A claim with no CLM
// segment yields claim id "UNKNOWN" and zero amounts.
func GenerateRemittance(claimDoc, outcome string) string {
	info, ok := ParseClaimInfo(claimDoc)
	claimID := info.ClaimID
	if !ok {
		claimID = "UNKNOWN"
	}
	billed := info.BilledTotal

	if outcome != OutcomePaid && outcome != OutcomeDenied {
		outcome = OutcomePaid
	}

	var paid, patientResp float64
	var clpStatus, cas string
	if outcome == OutcomePaid {
		paid = round2(billed * 0.8)
		patientResp = round2(billed - paid)
		clpStatus = clpStatusPaid
		if patientResp > 0 {
			cas = fmt.Sprintf("CAS*PR*1*%.2f~", patientResp)
		}
	} else {
		clpStatus = clpStatusDenied
		cas = fmt.Sprintf("CAS*CO*45*%.2f~", billed)
	}

	segments := []string{
		"ISA*00*          *00*          *ZZ*SENDERID      *ZZ*RECEIVERID    *250101*1200*^*00501*000000905*0*T*:~",
		"GS*HP*SENDERID*RECEIVERID*20250101*1200*1*X*005010X221A1~",
		"ST*835*0001~",
		"BPR*I*0*C*CHK************20250101~",
		"TRN*1*12345*9876543210~",
		"N1*PR*DEMO PAYER*PI*99999~",
		"N1*PE*GOOD HEALTH CLINIC*XX*1234567893~",
		fmt.Sprintf("CLP*%s*%s*%.2f*%.2f*%.2f*MC*PCN123*11~", claimID, clpStatus, billed, paid, patientResp),
	}
	if cas != "" {
		segments = append(segments, cas)
	}
	segments = append(segments,
		"SE*9*0001~",
		"GE*1*1~",
		"IEA*1*000000905~",
	)
	return strings.Join(segments, "\n")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
