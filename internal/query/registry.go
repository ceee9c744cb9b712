package query

import (
	"regexp"
	"sort"
	"strings"
)

// Detection is a resolved alias-table match: the phrase that occurred in the
// text and the canonical value it maps to.
type Detection struct {
	Phrase string
	Value  string
}

// AliasTable maps lowercase user-facing phrases onto canonical domain values.
// Tables are immutable once built.
type AliasTable struct {
	entries map[string]string
	// keys sorted by length descending, then lexicographically, so both the
	// longest-match scan and regex alternations are deterministic even for
	// equal-length phrases.
	keys []string
}

func NewAliasTable(entries map[string]string) AliasTable {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return AliasTable{entries: entries, keys: keys}
}

func (t AliasTable) Len() int {
	return len(t.entries)
}

// Lookup resolves an exact phrase.
func (t AliasTable) Lookup(phrase string) (string, bool) {
	v, ok := t.entries[phrase]
	return v, ok
}

// Match returns the longest phrase in the table that occurs as a contiguous
// substring of text. Matching is substring containment, not token-bounded;
// callers that need word boundaries apply their own guards.
func (t AliasTable) Match(text string) (Detection, bool) {
	for _, phrase := range t.keys {
		if strings.Contains(text, phrase) {
			return Detection{Phrase: phrase, Value: t.entries[phrase]}, true
		}
	}
	return Detection{}, false
}

// alternation builds a regex alternation group over the table's phrases,
// longest phrase first, skipping any phrase for which skip returns true.
func (t AliasTable) alternation(skip func(phrase, value string) bool) string {
	var b strings.Builder
	b.WriteByte('(')
	first := true
	for _, phrase := range t.keys {
		if skip != nil && skip(phrase, t.entries[phrase]) {
			continue
		}
		if !first {
			b.WriteByte('|')
		}
		b.WriteString(regexp.QuoteMeta(phrase))
		first = false
	}
	b.WriteByte(')')
	return b.String()
}

// AliasRegistry holds the four static vocabularies the detectors resolve
// against. Built once at startup and shared read-only.
type AliasRegistry struct {
	Metrics     AliasTable
	Sectors     AliasTable
	Indices     AliasTable
	Comparators AliasTable
}

// DefaultRegistry returns the registry for NSE-listed equities: financial
// metric columns, GICS-style sector names, NIFTY index codes, and comparator
// phrases.
func DefaultRegistry() *AliasRegistry {
	return &AliasRegistry{
		Metrics:     NewAliasTable(metricAliases),
		Sectors:     NewAliasTable(sectorAliases),
		Indices:     NewAliasTable(indexAliases),
		Comparators: NewAliasTable(comparatorAliases),
	}
}

var metricAliases = map[string]string{
	"pe":                    "PE",
	"p/e":                   "PE",
	"p e":                   "PE",
	"pb":                    "PB",
	"p/b":                   "PB",
	"p b":                   "PB",
	"price to book":         "PB",
	"price":                 "PRICE",
	"share price":           "PRICE",
	"market price":          "PRICE",
	"market cap":            "MarketCapCr",
	"marketcap":             "MarketCapCr",
	"market capitalization": "MarketCapCr",
	"eps":                   "EPS",
	"earnings per share":    "EPS",
	"dividend":              "DividendYieldPct",
	"dividend yield":        "DividendYieldPct",
	"sector":                "Sector",
}

var sectorAliases = map[string]string{
	"energy":      "Energy",
	"oil":         "Energy",
	"gas":         "Energy",
	"petroleum":   "Energy",
	"oil and gas": "Energy",
	"oil & gas":   "Energy",

	"information technology": "Information Technology",
	"it":                     "Information Technology",
	"tech":                   "Information Technology",
	"technology":             "Information Technology",
	"software":               "Information Technology",
	"infotech":               "Information Technology",

	"financials":         "Financials",
	"financial":          "Financials",
	"finance":            "Financials",
	"banking":            "Financials",
	"bank":               "Financials",
	"banks":              "Financials",
	"nbfc":               "Financials",
	"insurance":          "Financials",
	"financial services": "Financials",

	"automobile":  "Automobile",
	"auto":        "Automobile",
	"automotive":  "Automobile",
	"cars":        "Automobile",
	"vehicles":    "Automobile",
	"automobiles": "Automobile",

	"consumer staples":           "Consumer Staples",
	"fmcg":                       "Consumer Staples",
	"consumer goods":             "Consumer Staples",
	"staples":                    "Consumer Staples",
	"fast moving consumer goods": "Consumer Staples",

	"consumer discretionary": "Consumer Discretionary",
	"discretionary":          "Consumer Discretionary",
	"retail":                 "Consumer Discretionary",
	"consumer durables":      "Consumer Discretionary",

	"healthcare":      "Healthcare",
	"health":          "Healthcare",
	"pharma":          "Healthcare",
	"pharmaceutical":  "Healthcare",
	"pharmaceuticals": "Healthcare",
	"hospitals":       "Healthcare",
	"health care":     "Healthcare",

	"materials":         "Materials",
	"material":          "Materials",
	"metals":            "Materials",
	"metal":             "Materials",
	"mining":            "Materials",
	"steel":             "Materials",
	"cement":            "Materials",
	"chemicals":         "Materials",
	"metals and mining": "Materials",

	"industrials":    "Industrials",
	"industrial":     "Industrials",
	"manufacturing":  "Industrials",
	"engineering":    "Industrials",
	"construction":   "Industrials",
	"infrastructure": "Industrials",

	"utilities":   "Utilities",
	"utility":     "Utilities",
	"power":       "Utilities",
	"electricity": "Utilities",
	"electric":    "Utilities",

	"communication services": "Communication Services",
	"telecom":                "Communication Services",
	"communication":          "Communication Services",
	"telco":                  "Communication Services",
	"telecommunications":     "Communication Services",

	"conglomerate":  "Conglomerate",
	"diversified":   "Conglomerate",
	"conglomerates": "Conglomerate",

	"real estate": "Real Estate",
	"realty":      "Real Estate",
	"property":    "Real Estate",
	"real-estate": "Real Estate",
}

var indexAliases = map[string]string{
	"nifty 50":    "NIFTY50",
	"nifty50":     "NIFTY50",
	"nifty fifty": "NIFTY50",
	"niftyfifty":  "NIFTY50",
	"nifty-50":    "NIFTY50",

	"nifty 100":     "NIFTY100",
	"nifty100":      "NIFTY100",
	"nifty hundred": "NIFTY100",
	"nifty-100":     "NIFTY100",

	"nifty it":                     "NIFTYIT",
	"niftyit":                      "NIFTYIT",
	"nifty-it":                     "NIFTYIT",
	"nifty information technology": "NIFTYIT",
	"nifty tech":                   "NIFTYIT",

	"nifty bank":    "NIFTYBANK",
	"niftybank":     "NIFTYBANK",
	"nifty-bank":    "NIFTYBANK",
	"nifty banking": "NIFTYBANK",

	"nifty fmcg":             "NIFTYFMCG",
	"niftyfmcg":              "NIFTYFMCG",
	"nifty-fmcg":             "NIFTYFMCG",
	"nifty consumer staples": "NIFTYFMCG",

	"nifty energy":  "NIFTYENERGY",
	"niftyenergy":   "NIFTYENERGY",
	"nifty-energy":  "NIFTYENERGY",
	"nifty oil gas": "NIFTYENERGY",

	"nifty auto":       "NIFTYAUTO",
	"niftyauto":        "NIFTYAUTO",
	"nifty-auto":       "NIFTYAUTO",
	"nifty automobile": "NIFTYAUTO",

	"nifty pharma":         "NIFTYPHARMA",
	"niftypharma":          "NIFTYPHARMA",
	"nifty-pharma":         "NIFTYPHARMA",
	"nifty pharmaceutical": "NIFTYPHARMA",
	"nifty healthcare":     "NIFTYPHARMA",

	"nifty metal":  "NIFTYMETAL",
	"niftymetal":   "NIFTYMETAL",
	"nifty-metal":  "NIFTYMETAL",
	"nifty metals": "NIFTYMETAL",

	"nifty realty":      "NIFTYREALTY",
	"niftyrealty":       "NIFTYREALTY",
	"nifty-realty":      "NIFTYREALTY",
	"nifty real estate": "NIFTYREALTY",
}

var comparatorAliases = map[string]string{
	">":            "gt",
	"greater than": "gt",
	"higher than":  "gt",
	"more than":    "gt",
	"above":        "gt",
	"over":         "gt",

	"<":          "lt",
	"less than":  "lt",
	"lower than": "lt",
	"under":      "lt",
	"below":      "lt",

	">=":       "ge",
	"at least": "ge",
	"<=":       "le",
	"at most":  "le",
}
