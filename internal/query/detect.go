package query

import (
	"regexp"
	"strconv"

	"github.com/shubhsaxena/stock-search-assistant/internal/models"
)

// Detector runs the four independent detections over normalized text. All
// methods are read-only and safe for concurrent use.
type Detector struct {
	reg     *AliasRegistry
	guard   SectorGuard
	rangeRe *regexp.Regexp
}

func NewDetector(reg *AliasRegistry, guard SectorGuard) *Detector {
	if guard == nil {
		guard = NewListingGuard()
	}
	// Metric phrase, arbitrary filler, comparator phrase, then a numeric
	// literal separated by optional whitespace. Alternations are longest
	// phrase first so "dividend yield" wins over "dividend" and ">=" over
	// ">". Sector is a text column and never participates in range filters.
	metricAlt := reg.Metrics.alternation(func(_, value string) bool {
		return value == "Sector"
	})
	compAlt := reg.Comparators.alternation(nil)
	rangeRe := regexp.MustCompile(metricAlt + `.*?` + compAlt + `\s*([\d.]+)`)

	return &Detector{reg: reg, guard: guard, rangeRe: rangeRe}
}

// Metric returns the longest metric alias contained in text.
func (d *Detector) Metric(text string) (Detection, bool) {
	return d.reg.Metrics.Match(text)
}

// Index returns the canonical index code for the longest index alias
// contained in text.
func (d *Detector) Index(text string) (string, bool) {
	m, ok := d.reg.Indices.Match(text)
	if !ok {
		return "", false
	}
	return m.Value, true
}

// Sector returns the canonical sector for the longest sector alias contained
// in text, unless the guard decides the match is part of a company name
// ("axis bank", "bajaj auto").
func (d *Detector) Sector(text string) (string, bool) {
	m, ok := d.reg.Sectors.Match(text)
	if !ok {
		return "", false
	}
	if d.guard.IsCompanyName(text, m) {
		return "", false
	}
	return m.Value, true
}

// RangeFilter extracts a metric/comparator/threshold triple like
// "pe less than 20". Returns nil when no such pattern occurs or when any of
// the three pieces fails to resolve.
func (d *Detector) RangeFilter(text string) *models.RangeFilter {
	m := d.rangeRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	metricPhrase, compPhrase, valueStr := m[1], m[2], m[3]

	metric, ok := d.reg.Metrics.Lookup(metricPhrase)
	if !ok {
		return nil
	}
	op, ok := d.reg.Comparators.Lookup(compPhrase)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return nil
	}

	return &models.RangeFilter{
		Metric:          metric,
		Op:              op,
		Value:           value,
		RawMetricPhrase: metricPhrase,
		RawCompPhrase:   compPhrase,
	}
}
