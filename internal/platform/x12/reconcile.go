package x12

import (
	"strconv"
	"strings"
)

// Reconciliation statuses derived from the 835 CLP claim status code.
const (
	StatusPaid    = "paid"
	StatusDenied  = "denied"
	StatusOther   = "other"
	StatusUnknown = "unknown"
)

// Reconciliation is the billed/paid/responsibility summary of one claim
// against its remittance. Adjustments are the raw CAS segments from the 835.
type Reconciliation struct {
	ClaimID               string   `json:"claim_id"`
	Status                string   `json:"status"`
	BilledTotal           float64  `json:"billed_total"`
	PaidAmount            float64  `json:"paid_amount"`
	PatientResponsibility float64  `json:"patient_responsibility"`
	Adjustments           []string `json:"adjustments"`
	BalanceDueToProvider  float64  `json:"balance_due_to_provider"`
}

// Reconcile matches an 837 claim against an 835 remittance. The claim id
// comes from the 837; money fields come from the 835's CLP segment when
// present, with the 837's billed total as the fallback. The status is
// "unknown" until a CLP segment is seen. The balance never goes negative.
func Reconcile(claimDoc, remittanceDoc string) Reconciliation {
	info, _ := ParseClaimInfo(claimDoc)
	billed := info.BilledTotal

	rec := Reconciliation{
		ClaimID: info.ClaimID,
		Status:  StatusUnknown,
	}

	if remittanceDoc != "" {
		segments := splitSegments(remittanceDoc)
		for _, seg := range segments {
			if !strings.HasPrefix(seg, "CLP*") {
				continue
			}
			parts := strings.Split(seg, "*")
			statusCode := partAt(parts, 2)
			billed = floatAt(parts, 3, billed)
			rec.PaidAmount = floatAt(parts, 4, 0)
			rec.PatientResponsibility = floatAt(parts, 5, 0)

			switch statusCode {
			case clpStatusPaid:
				rec.Status = StatusPaid
			case clpStatusDenied:
				rec.Status = StatusDenied
			default:
				rec.Status = StatusOther
			}
			break
		}

		for _, seg := range segments {
			if strings.HasPrefix(seg, "CAS*") {
				rec.Adjustments = append(rec.Adjustments, seg)
			}
		}
	}

	rec.BilledTotal = round2(billed)
	rec.PaidAmount = round2(rec.PaidAmount)
	rec.PatientResponsibility = round2(rec.PatientResponsibility)

	balance := billed - rec.PaidAmount - rec.PatientResponsibility
	if balance < 0 {
		balance = 0
	}
	rec.BalanceDueToProvider = round2(balance)
	return rec
}

func partAt(parts []string, index int) string {
	if index >= len(parts) {
		return ""
	}
	return parts[index]
}

func floatAt(parts []string, index int, fallback float64) float64 {
	raw := partAt(parts, index)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
