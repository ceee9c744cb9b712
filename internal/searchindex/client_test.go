package searchindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shubhsaxena/stock-search-assistant/internal/config"
	"github.com/shubhsaxena/stock-search-assistant/internal/models"
)

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		QueryTimeout: 5 * time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxRequests:      10,
			Interval:         time.Second,
			Timeout:          time.Second,
			FailureThreshold: 5,
		},
		Retry: config.RetryConfig{
			MaxAttempts: 1,
			InitialWait: time.Millisecond,
			MaxWait:     10 * time.Millisecond,
			Multiplier:  2.0,
		},
	}
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	cfg := config.SearchIndexConfig{
		Endpoint:       endpoint,
		IndexName:      "stocks-static",
		APIKey:         "test-key",
		APIVersion:     "2025-09-01",
		RequestTimeout: 2 * time.Second,
	}
	c, err := NewClient(cfg, testSearchConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(config.SearchIndexConfig{}, testSearchConfig(), zap.NewNop())
	if err == nil {
		t.Error("expected error for missing endpoint")
	}
}

func TestBuildPayload(t *testing.T) {
	req := &models.CompiledRequest{
		SearchText:   "reliance",
		Filter:       "PE lt 50",
		SearchFields: []string{"SymbolRaw", "Name", "Symbol"},
		Select:       []string{"Symbol", "Name", "PE"},
		Top:          1,
		IncludeCount: false,
	}

	payload := buildPayload(req)

	if payload["search"] != "reliance" {
		t.Errorf("expected search 'reliance', got %v", payload["search"])
	}
	if payload["filter"] != "PE lt 50" {
		t.Errorf("expected filter passthrough, got %v", payload["filter"])
	}
	if payload["searchFields"] != "SymbolRaw,Name,Symbol" {
		t.Errorf("expected comma-joined searchFields, got %v", payload["searchFields"])
	}
	if payload["select"] != "Symbol,Name,PE" {
		t.Errorf("expected comma-joined select, got %v", payload["select"])
	}
	if payload["top"] != 1 {
		t.Errorf("expected top 1, got %v", payload["top"])
	}
}

func TestBuildPayload_OmitsEmptyOptionals(t *testing.T) {
	req := &models.CompiledRequest{
		SearchText:   "*",
		Select:       []string{"Symbol"},
		Top:          50,
		IncludeCount: true,
	}

	payload := buildPayload(req)

	if _, ok := payload["filter"]; ok {
		t.Error("expected no filter key for empty filter")
	}
	if _, ok := payload["searchFields"]; ok {
		t.Error("expected no searchFields key for empty list")
	}
	if payload["count"] != true {
		t.Errorf("expected count true, got %v", payload["count"])
	}
}

func TestDocToResult(t *testing.T) {
	doc := map[string]any{
		"Symbol":           "RELIANCE",
		"SymbolRaw":        "RELIANCE.NS",
		"Name":             "Reliance Industries",
		"Sector":           "Energy",
		"PE":               float64(28.5),
		"MarketCapCr":      float64(1900000),
		"AllIndices":       []any{"NIFTY 50", "NIFTY 100"},
		"@search.score":    float64(4.2),
		"@search.captions": "ignored",
		"ListingDate":      "1995-11-29",
	}

	r := docToResult(doc)

	if r.Symbol != "RELIANCE" {
		t.Errorf("expected symbol RELIANCE, got %q", r.Symbol)
	}
	if r.PE != 28.5 {
		t.Errorf("expected PE 28.5, got %f", r.PE)
	}
	if len(r.Indices) != 2 || r.Indices[0] != "NIFTY 50" {
		t.Errorf("unexpected indices: %v", r.Indices)
	}
	if r.Score != 4.2 {
		t.Errorf("expected score 4.2, got %f", r.Score)
	}
	if _, ok := r.Fields["ListingDate"]; !ok {
		t.Error("expected unmapped field to land in Fields")
	}
	if _, ok := r.Fields["@search.captions"]; ok {
		t.Error("expected @-prefixed keys to be dropped")
	}
}

func TestSearch_RoundTrip(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]any{
			"@odata.count": 2,
			"value": []map[string]any{
				{"Symbol": "TCS", "Sector": "Information Technology", "PE": 45.1},
				{"Symbol": "INFY", "Sector": "Information Technology", "PE": 41.8},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Search(context.Background(), &models.CompiledRequest{
		SearchText:   "*",
		Filter:       "Sector eq 'Information Technology' and PE gt 40",
		Select:       []string{"Symbol", "Sector", "PE"},
		Top:          50,
		IncludeCount: true,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if gotPath != "/indexes/stocks-static/docs/search" {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("expected api-key header, got %q", gotKey)
	}
	if gotBody["filter"] != "Sector eq 'Information Technology' and PE gt 40" {
		t.Errorf("filter not forwarded: %v", gotBody["filter"])
	}

	if result.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Total)
	}
	if len(result.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(result.Hits))
	}
	if result.Hits[0].Symbol != "TCS" {
		t.Errorf("expected first hit TCS, got %q", result.Hits[0].Symbol)
	}
}

func TestSearch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad filter"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Search(context.Background(), &models.CompiledRequest{
		SearchText: "*",
		Select:     []string{"Symbol"},
		Top:        50,
	})
	if err == nil {
		t.Error("expected error for 400 response")
	}
}

func TestSearch_MissingCountFallsBackToHitCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{
				{"Symbol": "HDFCBANK"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Search(context.Background(), &models.CompiledRequest{
		SearchText:   "hdfc bank",
		Select:       []string{"Symbol"},
		SearchFields: []string{"SymbolRaw", "Name", "Symbol"},
		Top:          1,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("expected total 1 from hit count, got %d", result.Total)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/indexes/stocks-static/docs/$count" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("1500"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
}

func TestHealthCheck_Unhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("expected error for 403 response")
	}
}
