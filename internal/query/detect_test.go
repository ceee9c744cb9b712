package query

import "testing"

func newTestDetector() *Detector {
	return NewDetector(DefaultRegistry(), nil)
}

func TestDetector_Metric_LongestMatch(t *testing.T) {
	d := newTestDetector()

	m, ok := d.Metric("dividend yield of itc")
	if !ok {
		t.Fatal("expected a metric match")
	}
	if m.Phrase != "dividend yield" {
		t.Errorf("expected phrase 'dividend yield', got %q", m.Phrase)
	}
	if m.Value != "DividendYieldPct" {
		t.Errorf("expected DividendYieldPct, got %q", m.Value)
	}
}

func TestDetector_Metric_None(t *testing.T) {
	d := newTestDetector()

	if _, ok := d.Metric("reliance industries"); ok {
		t.Error("expected no metric match")
	}
}

func TestDetector_Index(t *testing.T) {
	d := newTestDetector()

	tests := []struct {
		text string
		want string
	}{
		{"nifty 50", "NIFTY50"},
		{"nifty50 stocks", "NIFTY50"},
		{"nifty bank", "NIFTYBANK"},
		{"nifty-it companies", "NIFTYIT"},
		{"nifty pharma list", "NIFTYPHARMA"},
	}

	for _, tt := range tests {
		got, ok := d.Index(tt.text)
		if !ok {
			t.Errorf("Index(%q): no match", tt.text)
			continue
		}
		if got != tt.want {
			t.Errorf("Index(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetector_Index_PrefersLongerAlias(t *testing.T) {
	d := newTestDetector()

	// "nifty bank" must win over any shorter index alias contained in it.
	got, ok := d.Index("nifty bank heavyweights")
	if !ok || got != "NIFTYBANK" {
		t.Errorf("expected NIFTYBANK, got %q (ok=%v)", got, ok)
	}
}

func TestDetector_Sector_ListingQueries(t *testing.T) {
	d := newTestDetector()

	tests := []struct {
		text string
		want string
	}{
		{"banking stocks", "Financials"},
		{"it stocks", "Information Technology"},
		{"show pharma companies", "Healthcare"},
		{"all banks", "Financials"},
		{"fmcg sector", "Consumer Staples"},
		{"banking", "Financials"},
		{"list real estate companies", "Real Estate"},
	}

	for _, tt := range tests {
		got, ok := d.Sector(tt.text)
		if !ok {
			t.Errorf("Sector(%q): no match, want %q", tt.text, tt.want)
			continue
		}
		if got != tt.want {
			t.Errorf("Sector(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetector_Sector_CompanyNamesRejected(t *testing.T) {
	d := newTestDetector()

	// Short queries where the sector keyword trails a company word must not
	// be read as sector filters.
	companyNames := []string{
		"axis bank",
		"bajaj auto",
		"yes bank",
		"tata steel",
		"tata power",
	}

	for _, text := range companyNames {
		if got, ok := d.Sector(text); ok {
			t.Errorf("Sector(%q) = %q, expected company-name rejection", text, got)
		}
	}
}

func TestDetector_Sector_ModifierBeforeKeyword(t *testing.T) {
	d := newTestDetector()

	// A recognized modifier in front of the keyword keeps the sector reading.
	got, ok := d.Sector("top banking")
	if !ok || got != "Financials" {
		t.Errorf("Sector(\"top banking\") = %q (ok=%v), want Financials", got, ok)
	}
}

func TestDetector_RangeFilter(t *testing.T) {
	d := newTestDetector()

	tests := []struct {
		text       string
		metric     string
		op         string
		value      float64
	}{
		{"stocks with pe less than 20", "PE", "lt", 20},
		{"pe more than 40", "PE", "gt", 40},
		{"market cap above 1000", "MarketCapCr", "gt", 1000},
		{"dividend yield at least 2.5", "DividendYieldPct", "ge", 2.5},
		{"eps at most 12", "EPS", "le", 12},
		{"pb < 3", "PB", "lt", 3},
		{"pe >= 15", "PE", "ge", 15},
	}

	for _, tt := range tests {
		f := d.RangeFilter(tt.text)
		if f == nil {
			t.Errorf("RangeFilter(%q) = nil", tt.text)
			continue
		}
		if f.Metric != tt.metric || f.Op != tt.op || f.Value != tt.value {
			t.Errorf("RangeFilter(%q) = {%s %s %v}, want {%s %s %v}",
				tt.text, f.Metric, f.Op, f.Value, tt.metric, tt.op, tt.value)
		}
	}
}

func TestDetector_RangeFilter_LongerPhrasesWin(t *testing.T) {
	d := newTestDetector()

	f := d.RangeFilter("dividend yield more than 3")
	if f == nil {
		t.Fatal("expected a range filter")
	}
	// "dividend yield" must capture before the bare "dividend" alternative.
	if f.RawMetricPhrase != "dividend yield" {
		t.Errorf("expected raw phrase 'dividend yield', got %q", f.RawMetricPhrase)
	}
}

func TestDetector_RangeFilter_None(t *testing.T) {
	d := newTestDetector()

	tests := []string{
		"pe of reliance",       // no comparator
		"banking stocks",       // no metric
		"more than 50",         // no metric before comparator
		"pe is quite high",     // no number
	}

	for _, text := range tests {
		if f := d.RangeFilter(text); f != nil {
			t.Errorf("RangeFilter(%q) = %+v, want nil", text, f)
		}
	}
}

func TestDetector_RangeFilter_UnparsableNumber(t *testing.T) {
	d := newTestDetector()

	// The numeric group is permissive; a malformed literal must fail the
	// whole detection rather than produce a garbage threshold.
	if f := d.RangeFilter("pe less than 12.3.4"); f != nil {
		t.Errorf("expected nil for malformed number, got %+v", f)
	}
}

func TestDetector_RangeFilter_SectorNeverNumeric(t *testing.T) {
	d := newTestDetector()

	if f := d.RangeFilter("sector above 5"); f != nil {
		t.Errorf("sector must not form a range filter, got %+v", f)
	}
}
