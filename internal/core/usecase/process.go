package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/onboardkit/kyc-agent/internal/core/domain"
	"github.com/onboardkit/kyc-agent/internal/core/ports"
)

// ProcessObserver receives the outcome of a completed pipeline run.
// Implemented by the worker metrics.
type ProcessObserver interface {
	ObserveCaseProcessed(kycCase *domain.VerificationCase, plannedPicks, fallbacks int)
}

type ProcessCaseUseCase struct {
	repo      ports.CaseRepository
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	parser    ports.FieldParser
	faces     ports.FaceVerifier
	images    ports.ImageChecker
	scorer    *FraudScorer
	policy    domain.ScorePolicy

	llmFields ports.FieldExtractor // optional
	planner   ports.StepPlanner    // optional
	cache     ports.ReportCache    // optional
	observer  ProcessObserver      // optional

	qualityFloor   float64
	plannerTimeout time.Duration
}

type ProcessOptions struct {
	FieldExtractor ports.FieldExtractor
	Planner        ports.StepPlanner
	ReportCache    ports.ReportCache
	Observer       ProcessObserver

	QualityFloor   float64
	PlannerTimeout time.Duration
}

func NewProcessCaseUseCase(
	repo ports.CaseRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	parser ports.FieldParser,
	faces ports.FaceVerifier,
	images ports.ImageChecker,
	policy domain.ScorePolicy,
	opts ProcessOptions,
) *ProcessCaseUseCase {
	policy = policy.Normalize()
	return &ProcessCaseUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		parser:    parser,
		faces:     faces,
		images:    images,
		scorer:    NewFraudScorer(policy),
		policy:    policy,

		llmFields: opts.FieldExtractor,
		planner:   opts.Planner,
		cache:     opts.ReportCache,
		observer:  opts.Observer,

		qualityFloor:   opts.QualityFloor,
		plannerTimeout: opts.PlannerTimeout,
	}
}

// ProcessByID runs the verification pipeline for one case. Step results that
// cannot be produced (unreadable text, face API refusal) are recorded on the
// case and feed into the fraud score; only repository and storage failures
// mark the case failed.
func (uc *ProcessCaseUseCase) ProcessByID(ctx context.Context, caseID string) error {
	if err := uc.repo.UpdateStatus(ctx, caseID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	kycCase, err := uc.repo.GetByID(ctx, caseID)
	if err != nil {
		return fmt.Errorf("fetch case by id: %w", err)
	}

	document, selfie, err := uc.loadImages(ctx, kycCase)
	if err != nil {
		if failErr := uc.markFailed(ctx, caseID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	plan := newStepPlan(uc.planner, uc.plannerTimeout)
	for i := 0; i < 2*len(fixedStepOrder) && !plan.finished(); i++ {
		step := plan.next(ctx, uc.progressSummary(kycCase, plan))
		if step == "" {
			break
		}
		uc.runStep(ctx, step, kycCase, document, selfie)
		plan.markDone(step)
	}

	kycCase.UpdatedAt = time.Now().UTC()
	if err := uc.repo.SaveResult(ctx, kycCase); err != nil {
		if failErr := uc.markFailed(ctx, caseID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save case result: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, caseID, kycCase.Status, ""); err != nil {
		return fmt.Errorf("set final status: %w", err)
	}

	if uc.cache != nil && kycCase.Report != "" {
		if err := uc.cache.PutReport(ctx, kycCase.ID, kycCase.Report); err != nil {
			slog.Warn("report_cache_put_failed", "case_id", kycCase.ID, "error", err)
		}
	}
	if uc.observer != nil {
		uc.observer.ObserveCaseProcessed(kycCase, plan.plannedPicks, plan.fallbacks)
	}
	return nil
}

func (uc *ProcessCaseUseCase) runStep(ctx context.Context, step string, kycCase *domain.VerificationCase, document, selfie []byte) {
	switch step {
	case StepExtractText:
		uc.extractTextStep(ctx, kycCase, document)
	case StepParseFields:
		uc.parseFieldsStep(ctx, kycCase)
	case StepVerifyFaces:
		uc.verifyFacesStep(ctx, kycCase, document, selfie)
	case StepCalculateFraudScore:
		lowQuality := kycCase.DocumentQuality > 0 && kycCase.DocumentQuality < uc.qualityFloor
		kycCase.Fraud = uc.scorer.Assess(kycCase.Fields, kycCase.Face, lowQuality, time.Now().UTC())
	case StepGenerateReport:
		kycCase.Status = determineStatus(uc.policy, kycCase)
		kycCase.Report = renderReport(kycCase, time.Now().UTC())
	}
}

func (uc *ProcessCaseUseCase) extractTextStep(ctx context.Context, kycCase *domain.VerificationCase, document []byte) {
	text, err := uc.extractor.Extract(ctx, kycCase)
	if err != nil {
		slog.Warn("text_extraction_failed", "case_id", kycCase.ID, "error", err)
		text = ""
	}
	kycCase.RawText = text

	if quality, err := uc.images.QualityScore(document); err == nil {
		kycCase.DocumentQuality = quality
	}
}

func (uc *ProcessCaseUseCase) parseFieldsStep(ctx context.Context, kycCase *domain.VerificationCase) {
	fields := uc.parser.Parse(kycCase.RawText)

	if uc.llmFields != nil && strings.TrimSpace(kycCase.RawText) != "" {
		llmFields, err := uc.llmFields.ExtractFields(ctx, kycCase.RawText)
		if err != nil {
			slog.Warn("llm_field_extraction_failed", "case_id", kycCase.ID, "error", err)
		} else {
			fields = uc.parser.Reconcile(fields, llmFields, kycCase.RawText)
		}
	}

	kycCase.Fields = fields
}

func (uc *ProcessCaseUseCase) verifyFacesStep(ctx context.Context, kycCase *domain.VerificationCase, document, selfie []byte) {
	match, err := uc.faces.MatchFaces(ctx, document, selfie)
	if err != nil {
		slog.Warn("face_verification_failed", "case_id", kycCase.ID, "error", err)
		kycCase.Face = domain.FaceMatch{
			Checked: true,
			Matched: false,
			Message: fmt.Sprintf("Face verification unavailable: %v", err),
		}
		return
	}
	kycCase.Face = match
}

func (uc *ProcessCaseUseCase) loadImages(ctx context.Context, kycCase *domain.VerificationCase) ([]byte, []byte, error) {
	document, err := uc.readObject(ctx, kycCase.DocumentPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read document image: %w", err)
	}
	selfie, err := uc.readObject(ctx, kycCase.SelfiePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read selfie image: %w", err)
	}
	return document, selfie, nil
}

func (uc *ProcessCaseUseCase) readObject(ctx context.Context, key string) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (uc *ProcessCaseUseCase) markFailed(ctx context.Context, caseID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.repo.UpdateStatus(ctx, caseID, domain.StatusFailed, processErr.Error())
}

// progressSummary gives the planner a compact view of what has been produced
// so far.
func (uc *ProcessCaseUseCase) progressSummary(kycCase *domain.VerificationCase, plan *stepPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "pending steps: %s\n", strings.Join(plan.pending(), ", "))
	fmt.Fprintf(&b, "raw text extracted: %t (%d chars)\n", plan.done[StepExtractText], len(kycCase.RawText))
	if plan.done[StepParseFields] {
		fmt.Fprintf(&b, "fields missing: %d of %d\n", len(kycCase.Fields.Missing()), len(domain.FieldNames))
	}
	if kycCase.Face.Checked {
		fmt.Fprintf(&b, "faces matched: %t (similarity %.2f)\n", kycCase.Face.Matched, kycCase.Face.Similarity)
	}
	if plan.done[StepCalculateFraudScore] {
		fmt.Fprintf(&b, "fraud score: %d risk: %s\n", kycCase.Fraud.Score, kycCase.Fraud.Risk)
	}
	return b.String()
}
