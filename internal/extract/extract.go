// Package extract turns free-text outfit feedback into short, structured
// clothing tags.
//
// The pipeline runs up to four sources over the text and merges them:
//   - lexical regex templates propose candidate noun phrases
//   - the curated whitelist validates and categorizes candidates
//   - the product catalog confirms candidates with high-confidence names
//   - an optional AI adapter extracts items directly from the text
//
// Every surviving item passes the grammar enforcer (at most two words, no
// stop-words, a recognised garment noun) before aggregation.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrSourceUnavailable marks a failed optional source. The pipeline records
// it and carries on with the remaining sources.
var ErrSourceUnavailable = errors.New("extraction source unavailable")

// Strategy selects which sources the pipeline runs.
type Strategy string

const (
	StrategyBasic    Strategy = "basic"    // lexical + whitelist
	StrategyStandard Strategy = "standard" // + catalog
	StrategyAdvanced Strategy = "advanced" // + AI
)

// ParseStrategy parses a config value. Empty means standard.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return StrategyBasic, nil
	case "", "standard", "medium":
		return StrategyStandard, nil
	case "advanced":
		return StrategyAdvanced, nil
	}
	return "", fmt.Errorf("unknown extraction strategy %q (supported: basic, standard, advanced)", s)
}

func (s Strategy) usesCatalog() bool { return s == StrategyStandard || s == StrategyAdvanced }
func (s Strategy) usesAI() bool      { return s == StrategyAdvanced }

// Input is the text of one rating to tag.
type Input struct {
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
	Gender      string   `json:"gender,omitempty"`
}

// Text joins feedback and suggestions into the text the matchers scan.
func (in Input) Text() string {
	parts := make([]string, 0, len(in.Suggestions)+1)
	if s := strings.TrimSpace(in.Feedback); s != "" {
		parts = append(parts, s)
	}
	for _, s := range in.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// Stats describes one pipeline run.
type Stats struct {
	Candidates   int               `json:"candidates"`
	Dropped      int               `json:"dropped"`
	SourceErrors map[Source]string `json:"source_errors,omitempty"`
}

// Result is the output of one pipeline run.
type Result struct {
	RunID string          `json:"run_id"`
	Items []ExtractedItem `json:"items"`
	Stats Stats           `json:"stats"`
}

// Pipeline orchestrates the extraction sources.
type Pipeline struct {
	lexical       *LexicalMatcher
	store         ReferenceStore
	extractor     ItemExtractor
	strategy      Strategy
	matchStrategy MatchStrategy
	catalogLimit  int
	aggregator    *Aggregator
	enforcer      *Enforcer
	logger        *slog.Logger
}

// PipelineOption configures the extraction pipeline.
type PipelineOption func(*Pipeline)

// WithReferenceStore sets the whitelist/catalog source.
func WithReferenceStore(s ReferenceStore) PipelineOption {
	return func(p *Pipeline) { p.store = s }
}

// WithItemExtractor sets the AI extraction adapter used by StrategyAdvanced.
func WithItemExtractor(e ItemExtractor) PipelineOption {
	return func(p *Pipeline) { p.extractor = e }
}

// WithStrategy selects the sources to run.
func WithStrategy(s Strategy) PipelineOption {
	return func(p *Pipeline) {
		if s != "" {
			p.strategy = s
		}
	}
}

// WithMaxItems caps the items per run.
func WithMaxItems(n int) PipelineOption {
	return func(p *Pipeline) { p.aggregator = NewAggregator(n) }
}

// WithMatchStrategy selects how whitelist entries are matched.
func WithMatchStrategy(s MatchStrategy) PipelineOption {
	return func(p *Pipeline) { p.matchStrategy = s }
}

// WithCatalogLimit caps catalog products considered per candidate.
func WithCatalogLimit(n int) PipelineOption {
	return func(p *Pipeline) { p.catalogLimit = n }
}

// WithTagRule replaces the default tag rule.
func WithTagRule(r TagRule) PipelineOption {
	return func(p *Pipeline) { p.enforcer = NewEnforcer(r) }
}

// WithLogger sets the logger for source failures and dropped tags.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline. Without options it runs the standard
// strategy with no reference store, which degrades to lexical matching plus
// basic categorization.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		lexical:       NewLexicalMatcher(),
		strategy:      StrategyStandard,
		matchStrategy: MatchFirst,
		catalogLimit:  DefaultCatalogLimit,
		aggregator:    NewAggregator(DefaultMaxItems),
		enforcer:      NewEnforcer(DefaultTagRule()),
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Strategy returns the configured strategy.
func (p *Pipeline) Strategy() Strategy { return p.strategy }

// Enforcer returns the grammar enforcer used by the pipeline.
func (p *Pipeline) Enforcer() *Enforcer { return p.enforcer }

// Extract runs every configured source over in and returns the merged tags.
// Source failures never abort the run; they are logged and reported in
// Result.Stats.SourceErrors.
func (p *Pipeline) Extract(ctx context.Context, in Input) Result {
	start := time.Now()
	res := Result{
		RunID: uuid.NewString(),
		Items: []ExtractedItem{},
		Stats: Stats{SourceErrors: map[Source]string{}},
	}
	log := p.logger.With("run_id", res.RunID, "strategy", string(p.strategy))

	text := in.Text()
	candidates := p.lexical.Candidates(text)
	res.Stats.Candidates = len(candidates)

	// 1. Whitelist validation (falls back to basic categorization).
	var entries []WhitelistEntry
	if p.store != nil {
		var err error
		entries, err = p.store.Whitelist(ctx)
		if err != nil {
			p.sourceFailed(log, &res.Stats, SourceWhitelist, fmt.Errorf("%w: whitelist: %v", ErrSourceUnavailable, err))
			entries = nil
		}
	}
	validated := NewWhitelistValidator(entries, p.matchStrategy).ValidateAll(candidates)
	whitelistItems := Items(validated)

	// 2. Catalog and AI in parallel. Each writes only its own slot.
	var (
		catalogItems, aiItems []ExtractedItem
		catalogErr, aiErr     error
		g                     errgroup.Group
	)
	if p.strategy.usesCatalog() && p.store != nil && len(candidates) > 0 {
		g.Go(func() error {
			catalogItems, catalogErr = p.matchCatalog(ctx, candidates, in.Gender)
			return nil
		})
	}
	switch {
	case !p.strategy.usesAI() || strings.TrimSpace(text) == "":
	case p.extractor == nil:
		aiErr = fmt.Errorf("%w: ai: no extractor configured", ErrSourceUnavailable)
	default:
		g.Go(func() error {
			r := p.extractor.ExtractItems(ctx, AIRequest{Feedback: in.Feedback, Suggestions: in.Suggestions})
			if !r.Success {
				aiErr = fmt.Errorf("%w: ai: %s", ErrSourceUnavailable, r.Error)
				return nil
			}
			aiItems = Items(r.Items)
			return nil
		})
	}
	_ = g.Wait()

	if catalogErr != nil {
		p.sourceFailed(log, &res.Stats, SourceCatalog, catalogErr)
	}
	if aiErr != nil {
		p.sourceFailed(log, &res.Stats, SourceAI, aiErr)
	}

	// 3. Grammar enforcement, then merge in whitelist, catalog, AI order.
	lists := [][]ExtractedItem{whitelistItems, catalogItems, aiItems}
	for i, list := range lists {
		kept, dropped := p.enforcer.Apply(list)
		if dropped > 0 {
			log.Debug("tags dropped by grammar enforcer", "count", dropped)
		}
		res.Stats.Dropped += dropped
		lists[i] = kept
	}
	res.Items = p.aggregator.Merge(lists...)

	pipelineRunsTotal.WithLabelValues(string(p.strategy)).Inc()
	tagsDroppedTotal.Add(float64(res.Stats.Dropped))
	for _, item := range res.Items {
		itemsEmittedTotal.WithLabelValues(string(item.Source)).Inc()
	}
	runDurationSeconds.WithLabelValues(string(p.strategy)).Observe(time.Since(start).Seconds())

	log.Debug("extraction complete",
		"candidates", res.Stats.Candidates,
		"items", len(res.Items),
		"dropped", res.Stats.Dropped,
	)
	return res
}

// matchCatalog keeps the best catalog product per candidate. Any store
// error discards the whole source.
func (p *Pipeline) matchCatalog(ctx context.Context, candidates []string, gender string) ([]ExtractedItem, error) {
	matcher := NewCatalogMatcher(p.store, p.catalogLimit)
	out := make([]ExtractedItem, 0, len(candidates))
	for _, c := range candidates {
		matches, err := matcher.Match(ctx, c, gender)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			out = append(out, matches[0].Item())
		}
	}
	return out, nil
}

func (p *Pipeline) sourceFailed(log *slog.Logger, stats *Stats, src Source, err error) {
	log.Warn("extraction source failed", "source", string(src), "error", err)
	sourceErrorsTotal.WithLabelValues(string(src)).Inc()
	stats.SourceErrors[src] = err.Error()
}
