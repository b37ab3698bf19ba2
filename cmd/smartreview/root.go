package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/landlorddocs/smartreview/constants"
	"github.com/landlorddocs/smartreview/internal/classify"
	"github.com/landlorddocs/smartreview/internal/config"
	"github.com/landlorddocs/smartreview/internal/content"
	"github.com/landlorddocs/smartreview/internal/export"
	"github.com/landlorddocs/smartreview/internal/facts"
	"github.com/landlorddocs/smartreview/internal/fields"
	"github.com/landlorddocs/smartreview/internal/governor"
	"github.com/landlorddocs/smartreview/internal/llm"
	"github.com/landlorddocs/smartreview/internal/merge"
	"github.com/landlorddocs/smartreview/internal/pipeline"
	"github.com/landlorddocs/smartreview/internal/repository"
	"github.com/landlorddocs/smartreview/internal/review"
	"github.com/landlorddocs/smartreview/internal/rules"
)

type app struct {
	logger  *slog.Logger
	cfg     *config.Config
	catalog *config.Catalog
	svc     *review.Service
	export  *export.Service
	close   func()
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "smartreview",
		Short:         "Review landlord evidence files and surface legal warnings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newReviewCmd(&verbose),
		newCaseCmd(&verbose),
		newExportCmd(&verbose),
		newCatalogCmd(),
	)
	return root
}

func newApp(ctx context.Context, verbose bool) (*app, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	catalog, err := config.LoadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	db, err := repository.Open(ctx, repository.Config{
		Driver:      cfg.Database.Driver,
		DSN:         cfg.Database.DSN,
		DialTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}

	cache, err := governor.OpenCache(governor.CacheConfig{
		Dir:      cfg.Cache.Dir,
		InMemory: cfg.Cache.InMemory,
	}, logger)
	if err != nil {
		repository.Close(db, logger)
		return nil, err
	}

	classifier, err := classify.NewClassifier(catalog.Classifier, logger)
	if err != nil {
		repository.Close(db, logger)
		_ = cache.Close()
		return nil, err
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
		governor.New(catalog.Limits, cache, logger),
		logger,
	)

	filesRepo := repository.NewEvidenceFileRepository(db, logger)
	runsRepo := repository.NewRunRepository(db, logger)
	factsRepo := repository.NewCaseFactRepository(db, logger)
	warnsRepo := repository.NewWarningRepository(db, logger)

	return &app{
		logger:  logger,
		cfg:     cfg,
		catalog: catalog,
		svc:     review.NewService(filesRepo, runsRepo, factsRepo, warnsRepo, runner, logger),
		export:  export.NewService(factsRepo, warnsRepo, runsRepo, logger),
		close: func() {
			if err := cache.Close(); err != nil {
				logger.Warn("cache close failed", "error", err)
			}
			repository.Close(db, logger)
		},
	}, nil
}

func parseCaseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid case id %q: %w", s, err)
	}
	return id, nil
}

func parseJurisdiction(s string) constants.Jurisdiction {
	if s == "" {
		return constants.JurisdictionEngland
	}
	return constants.Jurisdiction(s)
}
