// Package orchestrator turns a free-text query into a response: parse,
// compile, cache lookup, index search, quote enrichment, hydration.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/shubhsaxena/stock-search-assistant/internal/config"
	"github.com/shubhsaxena/stock-search-assistant/internal/models"
	"github.com/shubhsaxena/stock-search-assistant/internal/observability"
	"github.com/shubhsaxena/stock-search-assistant/internal/query"
	"github.com/shubhsaxena/stock-search-assistant/internal/searchindex"
)

type SearchBackend interface {
	Search(ctx context.Context, req *models.CompiledRequest) (*searchindex.SearchResult, error)
}

type QuoteStore interface {
	LatestQuote(ctx context.Context, symbol string) (*models.Quote, error)
	AggregateQuote(ctx context.Context, symbol, field, agg string) (float64, error)
}

type Hydrator interface {
	HydrateResults(ctx context.Context, results []models.StockResult) ([]models.StockResult, error)
}

type ResultCache interface {
	GetSearchResults(ctx context.Context, q string) (*models.SearchResponse, error)
	SetSearchResults(ctx context.Context, q string, resp *models.SearchResponse) error
	GetStaleResults(ctx context.Context, q string) (*models.SearchResponse, error)
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	SetQuote(ctx context.Context, quote *models.Quote) error
}

type Orchestrator struct {
	backend    SearchBackend
	quoteStore QuoteStore
	hydrator   Hydrator
	cache      ResultCache
	router     *query.Router
	slowQuery  *observability.SlowQueryDetector
	cfg        config.SearchConfig
	logger     *zap.Logger

	// Static fallback results by mode, served when every live path fails
	staticFallback map[string][]models.StockResult
	mu             sync.RWMutex
}

func New(
	backend SearchBackend,
	quoteStore QuoteStore,
	hydrator Hydrator,
	resultCache ResultCache,
	slowQuery *observability.SlowQueryDetector,
	cfg config.SearchConfig,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		backend:        backend,
		quoteStore:     quoteStore,
		hydrator:       hydrator,
		cache:          resultCache,
		router:         query.NewRouter(query.NewDetector(query.DefaultRegistry(), nil)),
		slowQuery:      slowQuery,
		cfg:            cfg,
		logger:         logger,
		staticFallback: make(map[string][]models.StockResult),
	}
}

// Parse exposes the structured interpretation without executing it.
func (o *Orchestrator) Parse(text string) *models.QuerySpec {
	return o.router.Route(text)
}

func (o *Orchestrator) Execute(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "orchestrator.execute",
		attribute.String("query", req.Query),
	)
	defer span.End()

	spec := o.router.Route(req.Query)
	mode := spec.Mode.String()
	o.logger.Debug("query routed",
		zap.String("query", req.Query),
		zap.String("mode", mode),
	)

	if !req.ForceFresh && o.cache != nil {
		cached, err := o.cache.GetSearchResults(ctx, req.Query)
		if err != nil {
			o.logger.Warn("cache lookup error", zap.Error(err))
		}
		if cached != nil {
			cached.Metadata.CacheHit = true
			cached.Metadata.RequestID = req.RequestID
			cached.TookMs = time.Since(start).Milliseconds()
			observability.QueryRequestsTotal.WithLabelValues(mode, "cache_hit").Inc()
			return cached, nil
		}
	}

	resp, err := o.executeWithFallback(ctx, spec)
	if err != nil {
		observability.QueryRequestsTotal.WithLabelValues(mode, "error").Inc()
		observability.QueryRequestDuration.WithLabelValues(mode, "error", "error").Observe(time.Since(start).Seconds())
		return nil, err
	}

	resp.Spec = spec
	resp.TookMs = time.Since(start).Milliseconds()
	resp.Metadata.RequestID = req.RequestID
	resp.Metadata.Mode = mode

	// Quote-backed answers change every tick, so only static responses
	// are worth caching.
	if o.cache != nil && !resp.Metadata.Stale && !isQuoteBacked(spec) {
		if err := o.cache.SetSearchResults(ctx, req.Query, resp); err != nil {
			o.logger.Warn("cache set error", zap.Error(err))
		}
	}

	observability.QueryRequestsTotal.WithLabelValues(mode, "success").Inc()
	observability.QueryRequestDuration.WithLabelValues(mode, resp.Source, "success").Observe(time.Since(start).Seconds())

	if o.slowQuery != nil {
		o.slowQuery.Intercept(ctx, req.Query, mode, time.Since(start), resp.Total, resp.Source)
	}

	return resp, nil
}

func (o *Orchestrator) executeWithFallback(ctx context.Context, spec *models.QuerySpec) (*models.SearchResponse, error) {
	// Level 1: compiled request against the search index
	resp, err := o.primarySearch(ctx, spec)
	if err == nil {
		return resp, nil
	}
	o.logger.Warn("primary search failed, trying fallback", zap.Error(err))
	observability.FallbackCounter.WithLabelValues("primary_failed").Inc()

	// Level 2: stale cache copy
	if o.cache != nil {
		stale, cacheErr := o.cache.GetStaleResults(ctx, spec.Raw.Input)
		if cacheErr == nil && stale != nil {
			stale.Metadata.Stale = true
			stale.Source = "stale_cache"
			stale.Metadata.Source = "stale_cache"
			observability.FallbackCounter.WithLabelValues("stale_cache").Inc()
			return stale, nil
		}
	}

	// Level 3: static preloaded results for the mode
	staticResults := o.getStaticFallback(spec.Mode.String())
	if len(staticResults) > 0 {
		observability.FallbackCounter.WithLabelValues("static").Inc()
		return &models.SearchResponse{
			Results: staticResults,
			Total:   int64(len(staticResults)),
			Source:  "static_fallback",
			Metadata: models.ResponseMetadata{
				Source: "static_fallback",
			},
		}, nil
	}

	return nil, fmt.Errorf("all search paths exhausted: primary error: %w", err)
}

func (o *Orchestrator) primarySearch(ctx context.Context, spec *models.QuerySpec) (*models.SearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.QueryTimeout)
	defer cancel()

	compiled := query.Compile(spec)

	result, err := o.backend.Search(ctx, compiled)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	hits := result.Hits

	// Point-in-time metrics live in the tick store, not the static
	// index. Resolve the symbol first, then attach the quote.
	if isQuoteBacked(spec) && len(hits) > 0 {
		hits = o.attachQuotes(ctx, hits)
	}

	if spec.Mode == models.ModeSingleStockOverview && o.hydrator != nil {
		hydrated, err := o.hydrator.HydrateResults(ctx, hits)
		if err != nil {
			o.logger.Warn("hydration failed", zap.Error(err))
		} else {
			hits = hydrated
		}
	}

	return &models.SearchResponse{
		Results: hits,
		Total:   result.Total,
		Source:  "primary",
		Metadata: models.ResponseMetadata{
			Source: "search_index",
		},
	}, nil
}

// isQuoteBacked reports whether the queried metric comes from the tick
// store rather than the static index.
func isQuoteBacked(spec *models.QuerySpec) bool {
	return spec.Mode == models.ModeSingleStockMetric && spec.Metric == "PRICE"
}

func (o *Orchestrator) attachQuotes(ctx context.Context, hits []models.StockResult) []models.StockResult {
	for i := range hits {
		if hits[i].Symbol == "" {
			continue
		}
		quote, err := o.resolveQuote(ctx, hits[i].Symbol)
		if err != nil {
			o.logger.Warn("quote lookup failed",
				zap.String("symbol", hits[i].Symbol),
				zap.Error(err),
			)
			continue
		}
		if hits[i].Fields == nil {
			hits[i].Fields = make(map[string]any)
		}
		hits[i].Fields["Price"] = quote.Price
		hits[i].Fields["Change"] = quote.Change
		hits[i].Fields["ChangePercent"] = quote.ChangePercent
		hits[i].Fields["QuoteTime"] = quote.Timestamp
	}
	return hits
}

// Quote serves point-in-time price reads: Redis first, tick store on
// miss, then a cache fill.
func (o *Orchestrator) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	ctx, span := observability.StartSpan(ctx, "orchestrator.quote",
		attribute.String("symbol", symbol),
	)
	defer span.End()

	return o.resolveQuote(ctx, symbol)
}

// AggregateQuote answers min/max questions over a symbol's tick history.
// Aggregates are not cached; they scan history and change with every tick.
func (o *Orchestrator) AggregateQuote(ctx context.Context, symbol, field, agg string) (float64, error) {
	ctx, span := observability.StartSpan(ctx, "orchestrator.aggregate_quote",
		attribute.String("symbol", symbol),
		attribute.String("field", field),
		attribute.String("agg", agg),
	)
	defer span.End()

	if o.quoteStore == nil {
		return 0, fmt.Errorf("quote store unavailable")
	}
	return o.quoteStore.AggregateQuote(ctx, symbol, field, agg)
}

func (o *Orchestrator) resolveQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if o.cache != nil {
		cached, err := o.cache.GetQuote(ctx, symbol)
		if err != nil {
			o.logger.Warn("quote cache lookup error", zap.Error(err))
		}
		if cached != nil {
			return cached, nil
		}
	}

	if o.quoteStore == nil {
		return nil, fmt.Errorf("quote store unavailable")
	}

	quote, err := o.quoteStore.LatestQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("latest quote (symbol=%s): %w", symbol, err)
	}

	if o.cache != nil {
		if err := o.cache.SetQuote(ctx, quote); err != nil {
			o.logger.Warn("quote cache fill error", zap.Error(err))
		}
	}

	return quote, nil
}

func (o *Orchestrator) SetStaticFallback(mode string, results []models.StockResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.staticFallback[mode] = results
}

func (o *Orchestrator) getStaticFallback(mode string) []models.StockResult {
	o.mu.RLock()
	defer o.mu.RUnlock()

	results, ok := o.staticFallback[mode]
	if !ok {
		results = o.staticFallback["default"]
	}
	if len(results) == 0 {
		return nil
	}
	cp := make([]models.StockResult, len(results))
	copy(cp, results)
	return cp
}
