// Package searchindex is an HTTP client for the hosted document search
// service that holds the static stock index. It executes CompiledRequest
// payloads against the service's REST search API.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/shubhsaxena/stock-search-assistant/internal/config"
	"github.com/shubhsaxena/stock-search-assistant/internal/models"
	"github.com/shubhsaxena/stock-search-assistant/internal/observability"
	"github.com/shubhsaxena/stock-search-assistant/internal/resilience"
)

type Client struct {
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	cfg        config.SearchIndexConfig
	retryCfg   resilience.RetryConfig
	logger     *zap.Logger
}

func NewClient(cfg config.SearchIndexConfig, searchCfg config.SearchConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("search index endpoint not configured")
	}

	cb := resilience.NewCircuitBreaker("search-index-primary", searchCfg.CircuitBreaker, logger)

	logger.Info("search index client configured",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("index", cfg.IndexName),
	)

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cb:         cb,
		cfg:        cfg,
		retryCfg: resilience.RetryConfig{
			MaxAttempts: searchCfg.Retry.MaxAttempts,
			InitialWait: searchCfg.Retry.InitialWait,
			MaxWait:     searchCfg.Retry.MaxWait,
			Multiplier:  searchCfg.Retry.Multiplier,
		},
		logger: logger,
	}, nil
}

type SearchResult struct {
	Hits   []models.StockResult
	Total  int64
	TookMs int64
}

func (c *Client) Search(ctx context.Context, req *models.CompiledRequest) (*SearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "searchindex.search",
		attribute.String("search.index", c.cfg.IndexName),
	)
	defer span.End()

	start := time.Now()

	cbResult, err := c.cb.Execute(func() (any, error) {
		var retryResult *SearchResult
		retryErr := resilience.Retry(ctx, c.retryCfg, func() error {
			var execErr error
			retryResult, execErr = c.executeSearch(ctx, req)
			return execErr
		})
		return retryResult, retryErr
	})

	duration := time.Since(start)
	if err != nil {
		observability.SearchIndexDuration.WithLabelValues(c.cfg.IndexName, "error").Observe(duration.Seconds())
		return nil, fmt.Errorf("index search (index=%s): %w", c.cfg.IndexName, err)
	}

	result, ok := cbResult.(*SearchResult)
	if !ok || result == nil {
		observability.SearchIndexDuration.WithLabelValues(c.cfg.IndexName, "error").Observe(duration.Seconds())
		return nil, fmt.Errorf("index search (index=%s): unexpected nil result from circuit breaker", c.cfg.IndexName)
	}
	observability.SearchIndexDuration.WithLabelValues(c.cfg.IndexName, "success").Observe(duration.Seconds())

	result.TookMs = duration.Milliseconds()
	return result, nil
}

func (c *Client) executeSearch(ctx context.Context, req *models.CompiledRequest) (*SearchResult, error) {
	body, err := json.Marshal(buildPayload(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling search payload: %w", err)
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.IndexName, c.cfg.APIVersion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.cfg.APIKey)

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing index search: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("index search error status=%d body=%s", res.StatusCode, string(bodyBytes))
	}

	var indexResp searchResponse
	if err := json.NewDecoder(res.Body).Decode(&indexResp); err != nil {
		return nil, fmt.Errorf("decoding index response: %w", err)
	}

	hits := make([]models.StockResult, 0, len(indexResp.Value))
	for _, doc := range indexResp.Value {
		hits = append(hits, docToResult(doc))
	}

	total := indexResp.Count
	if total == 0 {
		total = int64(len(hits))
	}

	return &SearchResult{Hits: hits, Total: total}, nil
}

// buildPayload converts a CompiledRequest into the wire shape the REST API
// expects. Field lists go over the wire comma-joined.
func buildPayload(req *models.CompiledRequest) map[string]any {
	payload := map[string]any{
		"search": req.SearchText,
		"select": strings.Join(req.Select, ","),
		"top":    req.Top,
		"count":  req.IncludeCount,
	}
	if req.Filter != "" {
		payload["filter"] = req.Filter
	}
	if len(req.SearchFields) > 0 {
		payload["searchFields"] = strings.Join(req.SearchFields, ",")
	}
	return payload
}

func docToResult(doc map[string]any) models.StockResult {
	r := models.StockResult{Fields: map[string]any{}}
	for k, v := range doc {
		switch k {
		case "Symbol":
			r.Symbol, _ = v.(string)
		case "SymbolRaw":
			r.SymbolRaw, _ = v.(string)
		case "Name":
			r.Name, _ = v.(string)
		case "Sector":
			r.Sector, _ = v.(string)
		case "MarketCapCr":
			r.MarketCapCr, _ = v.(float64)
		case "PE":
			r.PE, _ = v.(float64)
		case "PB":
			r.PB, _ = v.(float64)
		case "EPS":
			r.EPS, _ = v.(float64)
		case "DividendYieldPct":
			r.DividendYieldPct, _ = v.(float64)
		case "AllIndices":
			if items, ok := v.([]any); ok {
				for _, item := range items {
					if s, ok := item.(string); ok {
						r.Indices = append(r.Indices, s)
					}
				}
			}
		case "@search.score":
			r.Score, _ = v.(float64)
		default:
			if strings.HasPrefix(k, "@") {
				continue
			}
			r.Fields[k] = v
		}
	}
	if len(r.Fields) == 0 {
		r.Fields = nil
	}
	return r
}

// HealthCheck issues a document count probe against the index.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/indexes/%s/docs/$count?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.IndexName, c.cfg.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	req.Header.Set("api-key", c.cfg.APIKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("index health check: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return fmt.Errorf("index health check status=%d", res.StatusCode)
	}
	return nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type searchResponse struct {
	Count int64            `json:"@odata.count"`
	Value []map[string]any `json:"value"`
}
