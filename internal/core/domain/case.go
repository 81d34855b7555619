package domain

import "time"

type CaseStatus string

const (
	StatusSubmitted    CaseStatus = "submitted"
	StatusProcessing   CaseStatus = "processing"
	StatusVerified     CaseStatus = "verified"
	StatusManualReview CaseStatus = "manual_review"
	StatusRejected     CaseStatus = "rejected"
	StatusFailed       CaseStatus = "failed"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// VerificationCase is the single mutable record accumulated across the
// verification pipeline. Fields filled by later steps stay zero until the
// step has run.
type VerificationCase struct {
	ID           string     `json:"id"`
	DocumentPath string     `json:"document_path"`
	DocumentMime string     `json:"document_mime"`
	SelfiePath   string     `json:"selfie_path"`
	SelfieMime   string     `json:"selfie_mime"`
	Status       CaseStatus `json:"status"`

	RawText string          `json:"raw_text,omitempty"`
	Fields  DocumentFields  `json:"fields"`
	Face    FaceMatch       `json:"face"`
	Fraud   FraudAssessment `json:"fraud"`
	Report  string          `json:"report,omitempty"`

	DocumentQuality float64 `json:"document_quality,omitempty"`

	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FaceMatch carries the outcome of the face comparison step. Checked stays
// false until the step has run, so a zero FaceMatch is distinguishable from
// a failed one.
type FaceMatch struct {
	Checked    bool    `json:"checked"`
	Matched    bool    `json:"matched"`
	Similarity float64 `json:"similarity"`
	Message    string  `json:"message,omitempty"`
}

type FraudAssessment struct {
	Score      int       `json:"score"`
	Risk       RiskLevel `json:"risk"`
	Indicators []string  `json:"indicators"`
}
