package ports

import (
	"context"
	"io"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

// CaseRepository persists and reads verification case state.
type CaseRepository interface {
	Create(ctx context.Context, kycCase *domain.VerificationCase) error
	GetByID(ctx context.Context, id string) (*domain.VerificationCase, error)
	UpdateStatus(ctx context.Context, id string, status domain.CaseStatus, errMessage string) error
	SaveResult(ctx context.Context, kycCase *domain.VerificationCase) error
	ListRecent(ctx context.Context, limit int) ([]domain.VerificationCase, error)
}

// ObjectStorage stores uploaded document and selfie images.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes case submission events.
type MessageQueue interface {
	PublishCaseSubmitted(ctx context.Context, caseID string) error
	SubscribeCaseSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor produces raw text from the stored identity document.
type TextExtractor interface {
	Extract(ctx context.Context, kycCase *domain.VerificationCase) (string, error)
}

// FieldParser derives structured document fields from raw text and merges
// in fields proposed by the LLM extractor.
type FieldParser interface {
	Parse(text string) domain.DocumentFields
	Reconcile(base, llm domain.DocumentFields, text string) domain.DocumentFields
}

// FieldExtractor asks an LLM for structured fields from raw text. Optional;
// its output is reconciled with the regex parser's.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (domain.DocumentFields, error)
}

// FaceVerifier compares the document portrait against the selfie.
type FaceVerifier interface {
	MatchFaces(ctx context.Context, document, selfie []byte) (domain.FaceMatch, error)
}

// StepPlanner picks the next pipeline step from an enumerated list.
type StepPlanner interface {
	NextStep(ctx context.Context, prompt string) (string, error)
}

// ImageChecker validates an uploaded image and estimates its quality.
type ImageChecker interface {
	Validate(data []byte, mimeType string) error
	QualityScore(data []byte) (float64, error)
}

// ReportCache keeps rendered reports for cheap re-reads.
type ReportCache interface {
	PutReport(ctx context.Context, caseID, report string) error
	GetReport(ctx context.Context, caseID string) (string, error)
}
