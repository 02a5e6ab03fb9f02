package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hurttlocker/ratemyfit/internal/config"
	"github.com/hurttlocker/ratemyfit/internal/extract"
	"github.com/hurttlocker/ratemyfit/internal/feedback"
	"github.com/hurttlocker/ratemyfit/internal/llm"
	"github.com/hurttlocker/ratemyfit/internal/logger"
	"github.com/hurttlocker/ratemyfit/internal/store"
	"github.com/hurttlocker/ratemyfit/internal/wardrobe"
)

// app is the wired set of components a command works with.
type app struct {
	cfg      config.ResolvedConfig
	logger   *slog.Logger
	store    *store.SQLiteStore
	pipeline *extract.Pipeline
	analyzer *feedback.Analyzer
	service  *wardrobe.Service
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// resolve loads configuration and the logger without touching the database.
func resolve(opts *globalOptions) (config.ResolvedConfig, *slog.Logger, error) {
	cfg, err := config.ResolveConfig(config.ResolveOptions{
		ConfigPath:  opts.configPath,
		CLILLM:      opts.llm,
		CLIDBPath:   opts.dbPath,
		CLIAddr:     opts.addr,
		CLIStrategy: opts.strategy,
		CLILogLevel: opts.logLevel,
	})
	if err != nil {
		return config.ResolvedConfig{}, nil, err
	}
	log := logger.New(logger.Config{
		Format:      cfg.LogFormat.Value,
		Environment: cfg.Environment.Value,
		Level:       logger.ParseLevel(cfg.LogLevel.Value),
	})
	return cfg, log, nil
}

// openApp opens the store and wires the pipeline, analyzer and service.
// LLM providers that cannot be built are logged and left out. Analysis then
// ends in the fallback and the AI source reports an error per run.
func openApp(opts *globalOptions, withAnalysis bool) (*app, error) {
	cfg, log, err := resolve(opts)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(store.StoreConfig{DBPath: cfg.DBPath.Value})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	pipeOpts, err := pipelineOptions(cfg, st, log)
	if err != nil {
		st.Close()
		return nil, err
	}
	pipeline := extract.NewPipeline(pipeOpts...)

	var vision llm.VisionProvider
	if withAnalysis {
		if p, err := buildProvider(cfg, "analysis"); err != nil {
			log.Warn("outfit analysis model unavailable, ratings will use fallback content", "error", err)
		} else if v, ok := p.(llm.VisionProvider); ok {
			vision = v
		}
	}
	analyzer := feedback.NewAnalyzer(vision, feedback.WithAnalyzerLogger(log))

	return &app{
		cfg:      cfg,
		logger:   log,
		store:    st,
		pipeline: pipeline,
		analyzer: analyzer,
		service:  wardrobe.NewService(st, pipeline, analyzer, log),
	}, nil
}

func pipelineOptions(cfg config.ResolvedConfig, st *store.SQLiteStore, log *slog.Logger) ([]extract.PipelineOption, error) {
	strategy, err := extract.ParseStrategy(cfg.Strategy.Value)
	if err != nil {
		return nil, fmt.Errorf("%s (from %s): %w", cfg.Strategy.Source, cfg.Strategy.From, err)
	}
	maxItems, err := cfg.MaxItems.Int(config.DefaultMaxItems)
	if err != nil {
		return nil, err
	}
	catalogLimit, err := cfg.CatalogLimit.Int(config.DefaultCatalogLimit)
	if err != nil {
		return nil, err
	}

	opts := []extract.PipelineOption{
		extract.WithReferenceStore(st),
		extract.WithStrategy(strategy),
		extract.WithMaxItems(maxItems),
		extract.WithMatchStrategy(extract.ParseMatchStrategy(cfg.MatchStrategy.Value)),
		extract.WithCatalogLimit(catalogLimit),
		extract.WithLogger(log),
	}
	if strategy == extract.StrategyAdvanced {
		p, err := buildProvider(cfg, "extraction")
		if err != nil {
			log.Warn("item extraction model unavailable", "error", err)
		} else {
			opts = append(opts, extract.WithItemExtractor(extract.NewLLMItemExtractor(p)))
		}
	}
	return opts, nil
}

// buildProvider creates the rate-limited provider configured for purpose.
func buildProvider(cfg config.ResolvedConfig, purpose string) (llm.Provider, error) {
	model := cfg.EffectiveLLMModel(purpose, config.DefaultLLM)
	llmCfg, err := llm.ParseLLMFlag(strings.TrimSpace(model.Value))
	if err != nil {
		return nil, err
	}
	llmCfg.APIKey = cfg.APIKeyForProvider(llmCfg.Provider).Value

	p, err := llm.NewProvider(llmCfg)
	if err != nil {
		return nil, err
	}
	rps, err := cfg.LLMRateLimit.Float(0)
	if err != nil {
		return nil, err
	}
	burst, err := cfg.LLMBurst.Int(1)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimited(p, rps, burst), nil
}
