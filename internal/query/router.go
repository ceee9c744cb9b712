package query

import (
	"strings"

	"github.com/shubhsaxena/stock-search-assistant/internal/models"
)

// detections bundles the independent detector outputs for one query. Rules
// read from it, never mutate it.
type detections struct {
	raw        string
	normalized string
	metric     *Detection
	indexCode  string
	sector     string
	filter     *models.RangeFilter
	stockName  string
}

// looksLikeListing reports whether the query reads as a request for a
// collection rather than a single entity: it carries a listing-context word,
// or nothing survives stock-name extraction, or it is short enough that a
// bare sector/index mention is the whole query.
func (d *detections) looksLikeListing() bool {
	for _, tok := range strings.Fields(d.normalized) {
		if listingContextWords[tok] {
			return true
		}
	}
	if d.stockName == "" {
		return true
	}
	return len(strings.Fields(d.normalized)) <= 3
}

// rule pairs a predicate with a spec builder. Rules are evaluated in slice
// order and the first predicate that holds wins, which makes the priority
// order reviewable as data instead of nested control flow.
type rule struct {
	name  string
	when  func(d *detections) bool
	build func(d *detections) *models.QuerySpec
}

// Router turns free text into a QuerySpec by running the detectors and
// applying the ordered rule table. Safe for concurrent use.
type Router struct {
	det   *Detector
	rules []rule
}

func NewRouter(det *Detector) *Router {
	return &Router{det: det, rules: routingRules()}
}

// Route classifies text into exactly one QuerySpec. It never fails: input
// that matches nothing degrades to an overview lookup, and input with no
// usable tokens at all resolves to the unknown mode.
func (r *Router) Route(text string) *models.QuerySpec {
	normalized := Normalize(text)

	d := &detections{raw: text, normalized: normalized}
	if m, ok := r.det.Metric(normalized); ok {
		d.metric = &m
	}
	if code, ok := r.det.Index(normalized); ok {
		d.indexCode = code
	}
	if sector, ok := r.det.Sector(normalized); ok {
		d.sector = sector
	}
	d.filter = r.det.RangeFilter(normalized)
	d.stockName = ExtractStockName(normalized, d.metric)

	for _, rule := range r.rules {
		if rule.when(d) {
			return rule.build(d)
		}
	}
	// Unreachable: the last rule always matches.
	return &models.QuerySpec{Mode: models.ModeUnknown, Raw: models.RawQuery{Input: text}}
}

// Rules returns the names of the routing rules in evaluation order.
func (r *Router) Rules() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.name
	}
	return names
}

// routingRules is the load-bearing priority order. Reordering entries changes
// which of several simultaneously true interpretations wins; treat any edit
// here as a behavioral change.
func routingRules() []rule {
	return []rule{
		{
			name: "index_with_range_filter",
			when: func(d *detections) bool { return d.indexCode != "" && d.filter != nil },
			build: func(d *detections) *models.QuerySpec {
				return &models.QuerySpec{
					Mode:      models.ModeListByMetricFilter,
					IndexCode: d.indexCode,
					Filter:    d.filter,
					Raw:       rawWithFilter(d),
				}
			},
		},
		{
			name: "sector_with_range_filter",
			when: func(d *detections) bool {
				return d.sector != "" && d.filter != nil && d.looksLikeListing()
			},
			build: func(d *detections) *models.QuerySpec {
				return &models.QuerySpec{
					Mode:   models.ModeListBySectorWithFilter,
					Sector: d.sector,
					Filter: d.filter,
					Raw:    rawWithFilter(d),
				}
			},
		},
		{
			name: "index_only",
			when: func(d *detections) bool { return d.indexCode != "" && d.metric == nil },
			build: func(d *detections) *models.QuerySpec {
				return &models.QuerySpec{
					Mode:      models.ModeListByIndex,
					IndexCode: d.indexCode,
					Raw:       models.RawQuery{Input: d.raw},
				}
			},
		},
		{
			name: "sector_listing",
			when: func(d *detections) bool { return d.sector != "" && d.looksLikeListing() },
			build: func(d *detections) *models.QuerySpec {
				return &models.QuerySpec{
					Mode:   models.ModeListBySector,
					Sector: d.sector,
					Raw:    models.RawQuery{Input: d.raw},
				}
			},
		},
		{
			name: "range_filter",
			when: func(d *detections) bool { return d.filter != nil },
			build: func(d *detections) *models.QuerySpec {
				return &models.QuerySpec{
					Mode:      models.ModeListByMetricFilter,
					IndexCode: d.indexCode,
					Filter:    d.filter,
					Raw:       rawWithFilter(d),
				}
			},
		},
		{
			name: "stock_metric",
			when: func(d *detections) bool { return d.metric != nil && d.stockName != "" },
			build: func(d *detections) *models.QuerySpec {
				return &models.QuerySpec{
					Mode:       models.ModeSingleStockMetric,
					StockQuery: d.stockName,
					Metric:     d.metric.Value,
					Raw: models.RawQuery{
						Input:        d.raw,
						MetricPhrase: d.metric.Phrase,
					},
				}
			},
		},
		{
			name: "bare_metric",
			when: func(d *detections) bool { return d.metric != nil },
			build: func(d *detections) *models.QuerySpec {
				// A metric with no stock and no comparator: pass the
				// underspecified filter through so the compiler can at
				// least project the column.
				return &models.QuerySpec{
					Mode: models.ModeListByMetricFilter,
					Filter: &models.RangeFilter{
						Metric:          d.metric.Value,
						RawMetricPhrase: d.metric.Phrase,
					},
					Raw: models.RawQuery{
						Input:        d.raw,
						MetricPhrase: d.metric.Phrase,
					},
				}
			},
		},
		{
			name: "fallback_overview",
			when: func(d *detections) bool { return true },
			build: func(d *detections) *models.QuerySpec {
				searchText := d.stockName
				if searchText == "" {
					searchText = d.normalized
				}
				if searchText == "" {
					return &models.QuerySpec{
						Mode: models.ModeUnknown,
						Raw:  models.RawQuery{Input: d.raw},
					}
				}
				return &models.QuerySpec{
					Mode:       models.ModeSingleStockOverview,
					StockQuery: searchText,
					Raw:        models.RawQuery{Input: d.raw},
				}
			},
		},
	}
}

func rawWithFilter(d *detections) models.RawQuery {
	raw := models.RawQuery{Input: d.raw}
	if d.filter != nil {
		raw.MetricPhrase = d.filter.RawMetricPhrase
		raw.CompPhrase = d.filter.RawCompPhrase
	}
	return raw
}
