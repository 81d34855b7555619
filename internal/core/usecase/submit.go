package usecase

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
	"github.com/onboardkit/kyc-agent/internal/core/ports"
)

type SubmitCaseUseCase struct {
	repo    ports.CaseRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	images  ports.ImageChecker
}

func NewSubmitCaseUseCase(
	repo ports.CaseRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	images ports.ImageChecker,
) *SubmitCaseUseCase {
	return &SubmitCaseUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		images:  images,
	}
}

func (uc *SubmitCaseUseCase) Submit(ctx context.Context, req domain.Submission) (*domain.VerificationCase, error) {
	if len(req.Document) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit case", fmt.Errorf("document image is required"))
	}
	if len(req.Selfie) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit case", fmt.Errorf("selfie image is required"))
	}
	if err := uc.images.Validate(req.Document, req.DocumentMime); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate document image", err)
	}
	if err := uc.images.Validate(req.Selfie, req.SelfieMime); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate selfie image", err)
	}

	id := uuid.NewString()
	docKey := fmt.Sprintf("%s_document_%s", id, sanitizeFilename(req.DocumentName))
	selfieKey := fmt.Sprintf("%s_selfie_%s", id, sanitizeFilename(req.SelfieName))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, docKey, bytes.NewReader(req.Document)); err != nil {
		return nil, fmt.Errorf("save document image: %w", err)
	}
	if err := uc.storage.Save(ctx, selfieKey, bytes.NewReader(req.Selfie)); err != nil {
		return nil, fmt.Errorf("save selfie image: %w", err)
	}

	kycCase := &domain.VerificationCase{
		ID:           id,
		DocumentPath: docKey,
		DocumentMime: req.DocumentMime,
		SelfiePath:   selfieKey,
		SelfieMime:   req.SelfieMime,
		Status:       domain.StatusSubmitted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.repo.Create(ctx, kycCase); err != nil {
		return nil, fmt.Errorf("create verification case: %w", err)
	}

	if err := uc.queue.PublishCaseSubmitted(ctx, kycCase.ID); err != nil {
		return nil, fmt.Errorf("publish case submitted event: %w", err)
	}

	return kycCase, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "image.bin"
	}
	return base
}
