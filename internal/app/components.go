package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"updatestracker/internal/config"
	"updatestracker/internal/extract"
	"updatestracker/internal/httpx"
	"updatestracker/internal/integrations/llm"
	"updatestracker/internal/logging"
	"updatestracker/internal/metrics"
	"updatestracker/internal/report"
	"updatestracker/internal/storage/sqlite"
	"updatestracker/internal/taxonomy"
)

// components is everything a command may need, built from one config.
type components struct {
	cfg       config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	taxonomy  *taxonomy.Store
	adapter   *llm.Adapter
	extractor *extract.Extractor
	store     *sqlite.Store
	service   *report.Service
}

// build assembles the extraction stack. The database is opened only when
// withStore is set.
func build(ctx context.Context, cfg config.Config, withStore bool) (*components, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, err
	}
	c := &components{cfg: cfg, logger: logger, metrics: metrics.New()}

	timeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	logger.Info("config loaded",
		zap.String("provider", cfg.LLMProvider),
		zap.String("model", cfg.LLMModel),
		zap.Bool("prefer_generated", *cfg.PreferGenerated),
		zap.Duration("llm_timeout", cfg.LLMTimeout()),
		zap.Duration("external_http_timeout", timeout),
		zap.String("timezone", cfg.Location.String()))

	tax := taxonomy.Default()
	if cfg.TaxonomyPath != "" {
		if tax, err = taxonomy.Load(cfg.TaxonomyPath); err != nil {
			return nil, fmt.Errorf("load taxonomy: %w", err)
		}
	}
	c.taxonomy = taxonomy.NewStore(tax)

	c.adapter, err = llm.NewAdapterFromConfig(ctx, cfg, llm.AdapterOptions{Logger: logger, Observer: c.metrics})
	if err != nil {
		return nil, fmt.Errorf("build llm adapter: %w", err)
	}

	opts := extract.Options{
		Taxonomy: c.taxonomy,
		Quality: extract.QualityGate{
			MaxBullets:       cfg.QualityMaxBullets,
			MaxTicketRepeats: cfg.QualityMaxTicketRepeats,
			ExtraMarkers:     cfg.QualityHallucinationMarkers,
		},
		Timeout:      cfg.LLMTimeout(),
		DefaultModel: cfg.LLMModel,
		Logger:       logger,
		Recorder:     c.metrics,
	}
	if c.adapter != nil {
		opts.Generator = c.adapter
	}
	c.extractor = extract.New(opts)

	var store report.Store
	if withStore {
		c.store, err = sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
		}
		logger.Info("database initialized", zap.String("path", cfg.DBPath))
		store = c.store
	}

	c.service = report.NewService(report.Options{
		Extractor:        c.extractor,
		Store:            store,
		DefaultModel:     cfg.LLMModel,
		PreferGenerated:  *cfg.PreferGenerated,
		BatchConcurrency: cfg.BatchConcurrency,
		Location:         cfg.Location,
		Logger:           logger,
		Observer:         c.metrics,
	})
	return c, nil
}

func (c *components) close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.logger.Warn("close database", zap.Error(err))
		}
	}
	_ = c.logger.Sync()
}
