package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/landlorddocs/smartreview/internal/classify"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/content"
	"github.com/landlorddocs/smartreview/internal/facts"
	"github.com/landlorddocs/smartreview/internal/fields"
	"github.com/landlorddocs/smartreview/internal/governor"
	"github.com/landlorddocs/smartreview/internal/ingest"
	"github.com/landlorddocs/smartreview/internal/llm"
	"github.com/landlorddocs/smartreview/internal/merge"
	"github.com/landlorddocs/smartreview/internal/pipeline"
	"github.com/landlorddocs/smartreview/internal/repository"
	"github.com/landlorddocs/smartreview/internal/review"
	"github.com/landlorddocs/smartreview/internal/rules"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	catalog, err := config.LoadCatalog(cfg.Catalog)
	if err != nil {
		logger.Error("invalid catalog", "error", err)
		os.Exit(1)
	}
	if len(cfg.Intake.Roots) == 0 {
		logger.Error("INTAKE_ROOTS is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		Driver:      cfg.Database.Driver,
		DSN:         cfg.Database.DSN,
		DialTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	cache, err := governor.OpenCache(governor.CacheConfig{
		Dir:      cfg.Cache.Dir,
		InMemory: cfg.Cache.InMemory,
	}, logger)
	if err != nil {
		logger.Error("cache open failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("cache close failed", "error", err)
		}
	}()

	classifier, err := classify.NewClassifier(catalog.Classifier, logger)
	if err != nil {
		logger.Error("invalid classifier catalog", "error", err)
		os.Exit(1)
	}

	provider := llm.NewOpenAIProvider(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		TextModel:   cfg.LLM.TextModel,
		VisionModel: cfg.LLM.VisionModel,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		RatePerSec:  cfg.LLM.RatePerSec,
	}, logger)

	gov := governor.New(catalog.Limits, cache, logger)
	proc := pipeline.NewProcessor(
		catalog,
		content.NewFileExtractor(content.Config{
			Pdftotext: cfg.OCR.Pdftotext,
			Pdftoppm:  cfg.OCR.Pdftoppm,
			Tesseract: cfg.OCR.Tesseract,
			DPI:       cfg.OCR.DPI,
			Lang:      cfg.OCR.Lang,
		}, logger),
		classifier,
		fields.NewExtractor(catalog, logger),
		llm.NewExtractor(provider, logger),
		merge.NewMerger(catalog, logger),
		cache,
		logger,
	)
	runner := pipeline.NewRunner(
		proc,
		facts.NewGate(catalog, logger),
		rules.NewRouter(catalog.Rules, logger),
		gov,
		logger,
	)

	filesRepo := repository.NewEvidenceFileRepository(db, logger)
	runsRepo := repository.NewRunRepository(db, logger)
	factsRepo := repository.NewCaseFactRepository(db, logger)
	warnsRepo := repository.NewWarningRepository(db, logger)
	svc := review.NewService(filesRepo, runsRepo, factsRepo, warnsRepo, runner, logger)

	queue := review.NewSubmitQueue(svc, logger,
		review.WithWorkers(catalog.Limits.Fanout),
		review.WithQueueSize(512),
		review.WithProcessTimeout(5*time.Minute),
	)

	intake := ingest.NewIntake(queue, cfg.Intake.Roots, cfg.Intake.Debounce, "", logger)
	go func() {
		if err := intake.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("intake stopped", "error", err)
			stop()
		}
	}()

	logger.Info("smartreviewd watching for evidence", "roots", cfg.Intake.Roots)
	<-ctx.Done()
	logger.Info("shutting down")
	queue.Shutdown(context.Background())
	logger.Info("stopped")
}
