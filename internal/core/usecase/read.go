package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
	"github.com/onboardkit/kyc-agent/internal/core/ports"
)

type ReadCaseUseCase struct {
	repo  ports.CaseRepository
	cache ports.ReportCache // optional
}

func NewReadCaseUseCase(repo ports.CaseRepository, cache ports.ReportCache) *ReadCaseUseCase {
	return &ReadCaseUseCase{repo: repo, cache: cache}
}

func (uc *ReadCaseUseCase) GetByID(ctx context.Context, id string) (*domain.VerificationCase, error) {
	return uc.repo.GetByID(ctx, id)
}

// GetReport serves the rendered text report, consulting the cache first.
func (uc *ReadCaseUseCase) GetReport(ctx context.Context, id string) (string, error) {
	if uc.cache != nil {
		report, err := uc.cache.GetReport(ctx, id)
		if err == nil && report != "" {
			return report, nil
		}
	}

	kycCase, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("fetch case by id: %w", err)
	}
	if kycCase.Report == "" {
		return "", domain.WrapError(domain.ErrCaseNotFound, "get report", errors.New("report not generated yet"))
	}

	if uc.cache != nil {
		if err := uc.cache.PutReport(ctx, id, kycCase.Report); err != nil {
			slog.Warn("report_cache_put_failed", "case_id", id, "error", err)
		}
	}
	return kycCase.Report, nil
}

func (uc *ReadCaseUseCase) ListRecent(ctx context.Context, limit int) ([]domain.VerificationCase, error) {
	if limit <= 0 {
		limit = 100
	}
	return uc.repo.ListRecent(ctx, limit)
}
