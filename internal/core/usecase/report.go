package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

const notFoundPlaceholder = "Not found"

// determineStatus maps pipeline results onto the final case status. A high
// fraud score or a face mismatch rejects the case outright; missing fields
// send it to manual review.
func determineStatus(policy domain.ScorePolicy, kycCase *domain.VerificationCase) domain.CaseStatus {
	if kycCase.Fraud.Score >= policy.HighRiskThreshold {
		return domain.StatusRejected
	}
	if !kycCase.Face.Matched {
		return domain.StatusRejected
	}
	if len(kycCase.Fields.Missing()) > 0 {
		return domain.StatusManualReview
	}
	return domain.StatusVerified
}

func riskLabel(risk domain.RiskLevel) string {
	switch risk {
	case domain.RiskHigh:
		return "High"
	case domain.RiskMedium:
		return "Medium"
	default:
		return "Low"
	}
}

func statusLabel(status domain.CaseStatus) string {
	switch status {
	case domain.StatusVerified:
		return "VERIFIED"
	case domain.StatusManualReview:
		return "MANUAL REVIEW REQUIRED"
	case domain.StatusRejected:
		return "REJECTED"
	case domain.StatusFailed:
		return "PROCESSING ERROR"
	default:
		return strings.ToUpper(string(status))
	}
}

// renderReport produces the human-readable verification report.
func renderReport(kycCase *domain.VerificationCase, now time.Time) string {
	var b strings.Builder

	b.WriteString("KYC Verification Results\n")
	fmt.Fprintf(&b, "Status: %s\n", statusLabel(kycCase.Status))
	fmt.Fprintf(&b, "Timestamp: %s\n", now.UTC().Format(time.RFC3339))
	b.WriteString("\nExtracted Document Data\n")
	for _, name := range domain.FieldNames {
		value := kycCase.Fields.Get(name)
		if value == "" {
			value = notFoundPlaceholder
		}
		fmt.Fprintf(&b, "%s: %s\n", name, value)
	}

	b.WriteString("\nFace Verification\n")
	message := kycCase.Face.Message
	if message == "" {
		if kycCase.Face.Matched {
			message = "Faces match."
		} else {
			message = "Faces do not match."
		}
	}
	fmt.Fprintf(&b, "Message: %s\n", message)
	if kycCase.Face.Checked {
		fmt.Fprintf(&b, "Similarity: %.2f\n", kycCase.Face.Similarity)
	}

	b.WriteString("\nFraud Detection\n")
	fmt.Fprintf(&b, "Fraud Score: %d/100\n", kycCase.Fraud.Score)
	fmt.Fprintf(&b, "Risk Level: %s\n", riskLabel(kycCase.Fraud.Risk))
	b.WriteString("Indicators:\n")
	if len(kycCase.Fraud.Indicators) == 0 {
		b.WriteString("- No significant risk indicators found.\n")
	} else {
		for _, indicator := range kycCase.Fraud.Indicators {
			fmt.Fprintf(&b, "- %s\n", indicator)
		}
	}

	return b.String()
}
