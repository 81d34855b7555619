// Package bootstrap wires configuration, infrastructure adapters and
// usecases into a runnable application for both the api and the worker.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/onboardkit/kyc-agent/internal/config"
	"github.com/onboardkit/kyc-agent/internal/core/domain"
	"github.com/onboardkit/kyc-agent/internal/core/ports"
	"github.com/onboardkit/kyc-agent/internal/core/usecase"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/cache/redis"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/extract"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/face/regula"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/fieldparse"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/imaging"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/llm/gemini"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/ocr/tesseract"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/ocr/vision"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/queue/nats"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/repository/postgres"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/resilience"
	"github.com/onboardkit/kyc-agent/internal/infrastructure/storage/localfs"
	"github.com/onboardkit/kyc-agent/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Repo  ports.CaseRepository

	SubmitUC  ports.CaseSubmitter
	ReadUC    ports.CaseReader
	ProcessUC ports.CaseProcessor

	WorkerMetrics *metrics.WorkerMetrics

	closers []func()
}

// New builds the full dependency graph. withWorkerDeps controls whether the
// processing pipeline (OCR, face API, LLM) is dialed; the api binary only
// needs submission and reads.
func New(ctx context.Context, cfg config.Config, withWorkerDeps bool) (*App, error) {
	app := &App{Config: cfg}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })

	repo := postgres.NewCaseRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	app.Repo = repo

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.closers = append(app.closers, queue.Close)
	app.Queue = queue

	checker := imaging.NewChecker(cfg.MinImageWidth, cfg.MinImageHeight)

	var cache ports.ReportCache
	if cfg.RedisAddr != "" {
		reportCache, err := redis.NewReportCache(cfg.RedisAddr, cfg.RedisPassword, time.Duration(cfg.ReportCacheTTLSeconds)*time.Second)
		if err != nil {
			// The cache is an optimization; reads fall back to postgres.
			slog.Warn("report cache unavailable", "error", err)
		} else {
			app.closers = append(app.closers, func() { _ = reportCache.Close() })
			cache = reportCache
		}
	}

	app.SubmitUC = usecase.NewSubmitCaseUseCase(repo, storage, queue, checker)
	app.ReadUC = usecase.NewReadCaseUseCase(repo, cache)

	if !withWorkerDeps {
		return app, nil
	}

	engine, err := buildOCREngine(ctx, cfg, app)
	if err != nil {
		app.Close()
		return nil, err
	}
	extractor := extract.NewExtractor(storage, engine)

	faces := regula.NewClient(cfg.FaceAPIURL, cfg.FaceMatchThreshold, executor)
	probeCtx, probeCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := faces.HealthCheck(probeCtx); err != nil {
		// Cases still process; face failures surface as unmatched results.
		slog.Warn("face api unreachable at startup", "url", cfg.FaceAPIURL, "error", err)
	}
	probeCancel()

	opts := usecase.ProcessOptions{
		ReportCache:    cache,
		QualityFloor:   cfg.QualityFloor,
		PlannerTimeout: time.Duration(cfg.PlannerTimeoutSeconds) * time.Second,
	}

	if cfg.GeminiAPIKey != "" {
		llm, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		app.closers = append(app.closers, func() { _ = llm.Close() })
		opts.FieldExtractor = llm
		if cfg.PlannerEnabled {
			opts.Planner = llm
		}
	}

	workerMetrics := metrics.NewWorkerMetrics("kyc-worker")
	app.WorkerMetrics = workerMetrics
	opts.Observer = workerMetrics

	app.ProcessUC = usecase.NewProcessCaseUseCase(
		repo, storage, extractor, fieldparse.NewParser(), faces, checker,
		scorePolicy(cfg), opts,
	)
	return app, nil
}

func buildOCREngine(ctx context.Context, cfg config.Config, app *App) (extract.Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.OCREngine)) {
	case "tesseract":
		languages := strings.Split(cfg.OCRLanguages, ",")
		for i := range languages {
			languages[i] = strings.TrimSpace(languages[i])
		}
		return tesseract.NewEngine(languages...), nil
	case "", "vision":
		engine, err := vision.NewEngine(ctx, cfg.VisionCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("init vision ocr: %w", err)
		}
		app.closers = append(app.closers, func() { _ = engine.Close() })
		return engine, nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.OCREngine)
	}
}

func scorePolicy(cfg config.Config) domain.ScorePolicy {
	policy := domain.DefaultScorePolicy()
	if cfg.MediumRiskThreshold > 0 {
		policy.MediumRiskThreshold = cfg.MediumRiskThreshold
	}
	if cfg.HighRiskThreshold > 0 {
		policy.HighRiskThreshold = cfg.HighRiskThreshold
	}
	return policy
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
