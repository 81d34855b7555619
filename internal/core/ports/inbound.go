package ports

import (
	"context"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
)

// CaseSubmitter is the inbound contract for KYC submission orchestration.
type CaseSubmitter interface {
	Submit(ctx context.Context, req domain.Submission) (*domain.VerificationCase, error)
}

// CaseReader is the inbound read model for case state and reports.
type CaseReader interface {
	GetByID(ctx context.Context, id string) (*domain.VerificationCase, error)
	GetReport(ctx context.Context, id string) (string, error)
	ListRecent(ctx context.Context, limit int) ([]domain.VerificationCase, error)
}

// CaseProcessor is the inbound contract for asynchronous case processing.
type CaseProcessor interface {
	ProcessByID(ctx context.Context, caseID string) error
}
