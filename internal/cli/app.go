package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/tradeline/internal/cache"
	"github.com/ppiankov/tradeline/internal/llm"
	"github.com/ppiankov/tradeline/internal/model"
	"github.com/ppiankov/tradeline/internal/persist"
	"github.com/ppiankov/tradeline/internal/pipeline"
	"github.com/ppiankov/tradeline/internal/worker"
	"go.uber.org/zap"
)

// app holds the collaborators shared by the commands
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	limiter  *worker.Limiter
	backend  persist.Backend
	cache    cache.Cache
	pipeline *pipeline.Pipeline
}

// newApp wires config, logging, persistence, caching and the AI scan into a pipeline
func newApp(cfg *model.Config) (*app, error) {
	if err := validateProvider(cfg); err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	backend, err := persist.New(cfg, limiter, logger)
	if err != nil {
		return nil, err
	}

	c := cache.New(cfg.Cache)
	scanner, err := llm.NewScanner(llm.ConfigFromModel(cfg), c, logger)
	if err != nil {
		// Don't fail the entire run, the scan is optional
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize AI scan provider: %v\n", err)
		scanner = nil
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		limiter: limiter,
		backend: backend,
		cache:   c,
		pipeline: pipeline.NewPipeline(cfg, pipeline.Options{
			Templates: backend,
			Scanner:   scanner,
			Cache:     c,
			Logger:    logger,
		}),
	}, nil
}

// Close releases the backend and flushes the logger
func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
