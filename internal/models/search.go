package models

import "time"

type SearchRequest struct {
	Query      string `json:"query"`
	ForceFresh bool   `json:"force_fresh,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

type SearchResponse struct {
	Spec     *QuerySpec       `json:"spec"`
	Results  []StockResult    `json:"results"`
	Total    int64            `json:"total"`
	TookMs   int64            `json:"took_ms"`
	Source   string           `json:"source"`
	Metadata ResponseMetadata `json:"metadata"`
}

type StockResult struct {
	Symbol           string         `json:"symbol,omitempty"`
	SymbolRaw        string         `json:"symbol_raw,omitempty"`
	Name             string         `json:"name,omitempty"`
	Sector           string         `json:"sector,omitempty"`
	MarketCapCr      float64        `json:"market_cap_cr,omitempty"`
	PE               float64        `json:"pe,omitempty"`
	PB               float64        `json:"pb,omitempty"`
	EPS              float64        `json:"eps,omitempty"`
	DividendYieldPct float64        `json:"dividend_yield_pct,omitempty"`
	Indices          []string       `json:"indices,omitempty"`
	Score            float64        `json:"score,omitempty"`
	Fields           map[string]any `json:"fields,omitempty"`
}

type ResponseMetadata struct {
	RequestID string `json:"request_id"`
	Source    string `json:"source"`
	Mode      string `json:"mode"`
	CacheHit  bool   `json:"cache_hit"`
	Stale     bool   `json:"stale"`
}

// Quote is a point-in-time price record from the time-series store.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Timestamp     time.Time `json:"timestamp"`
	Price         float64   `json:"price,omitempty"`
	Change        float64   `json:"change,omitempty"`
	ChangePercent float64   `json:"change_percent,omitempty"`
}

// TickEvent is one price update flowing through the ingest pipeline.
type TickEvent struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Timestamp     time.Time `json:"timestamp"`
}

// ProfileEvent is emitted when a company profile document changes.
type ProfileEvent struct {
	Type      string         `json:"type"`
	Symbol    string         `json:"symbol"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type AnalyticsEvent struct {
	EventType  string    `json:"event_type"`
	QueryHash  string    `json:"query_hash"`
	QueryMode  string    `json:"query_mode"`
	DurationMs float64   `json:"duration_ms"`
	TotalHits  int64     `json:"total_hits"`
	Timestamp  time.Time `json:"timestamp"`
	TraceID    string    `json:"trace_id"`
	Source     string    `json:"source"`
}
