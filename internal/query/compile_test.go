package query

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shubhsaxena/stock-search-assistant/internal/models"
)

func TestCompile_SingleStockMetric(t *testing.T) {
	req := Compile(&models.QuerySpec{
		Mode:       models.ModeSingleStockMetric,
		StockQuery: "reliance",
		Metric:     "PE",
	})

	if req.SearchText != "reliance" {
		t.Errorf("expected search text 'reliance', got %q", req.SearchText)
	}
	if req.Top != 1 {
		t.Errorf("expected top 1, got %d", req.Top)
	}
	if req.Filter != "" {
		t.Errorf("expected no filter, got %q", req.Filter)
	}
	if req.IncludeCount {
		t.Error("expected no count for single-entity mode")
	}
	want := []string{"SymbolRaw", "Name", "Symbol", "PE"}
	if !reflect.DeepEqual(req.Select, want) {
		t.Errorf("expected select %v, got %v", want, req.Select)
	}
}

func TestCompile_SingleStockMetric_MetricAlreadyInIdentity(t *testing.T) {
	req := Compile(&models.QuerySpec{
		Mode:       models.ModeSingleStockMetric,
		StockQuery: "infy",
		Metric:     "Name",
	})

	seen := map[string]int{}
	for _, f := range req.Select {
		seen[f]++
	}
	if seen["Name"] != 1 {
		t.Errorf("expected Name exactly once in select, got %v", req.Select)
	}
}

func TestCompile_SingleStockOverview(t *testing.T) {
	req := Compile(&models.QuerySpec{
		Mode:       models.ModeSingleStockOverview,
		StockQuery: "infosys",
	})

	if req.SearchText != "infosys" {
		t.Errorf("expected 'infosys', got %q", req.SearchText)
	}
	if req.Top != 1 {
		t.Errorf("expected top 1, got %d", req.Top)
	}
	if !reflect.DeepEqual(req.Select, overviewFields) {
		t.Errorf("expected overview select, got %v", req.Select)
	}
}

func TestCompile_ListByIndex(t *testing.T) {
	req := Compile(&models.QuerySpec{
		Mode:      models.ModeListByIndex,
		IndexCode: "NIFTY50",
	})

	if req.SearchText != "*" {
		t.Errorf("expected wildcard search, got %q", req.SearchText)
	}
	if req.Filter != "AllIndices/any(i: i eq 'NIFTY50')" {
		t.Errorf("unexpected filter %q", req.Filter)
	}
	if req.Top != listPageSize {
		t.Errorf("expected top %d, got %d", listPageSize, req.Top)
	}
	if !req.IncludeCount {
		t.Error("expected count for listing mode")
	}
}

func TestCompile_ListBySector(t *testing.T) {
	req := Compile(&models.QuerySpec{
		Mode:   models.ModeListBySector,
		Sector: "Financials",
	})

	if req.Filter != "Sector eq 'Financials'" {
		t.Errorf("unexpected filter %q", req.Filter)
	}
	if !req.IncludeCount {
		t.Error("expected count")
	}
}

func TestCompile_ListBySectorWithFilter(t *testing.T) {
	req := Compile(&models.QuerySpec{
		Mode:   models.ModeListBySectorWithFilter,
		Sector: "Information Technology",
		Filter: &models.RangeFilter{Metric: "PE", Op: "gt", Value: 40},
	})

	want := "Sector eq 'Information Technology' and PE gt 40"
	if req.Filter != want {
		t.Errorf("expected filter %q, got %q", want, req.Filter)
	}

	// The filtered metric must be projected even though it is not an
	// identity field.
	found := false
	for _, f := range req.Select {
		if f == "PE" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected PE in select, got %v", req.Select)
	}
}

func TestCompile_ListByMetricFilter_WithIndex(t *testing.T) {
	req := Compile(&models.QuerySpec{
		Mode:      models.ModeListByMetricFilter,
		IndexCode: "NIFTY50",
		Filter:    &models.RangeFilter{Metric: "PE", Op: "lt", Value: 50},
	})

	want := "AllIndices/any(i: i eq 'NIFTY50') and PE lt 50"
	if req.Filter != want {
		t.Errorf("expected filter %q, got %q", want, req.Filter)
	}

	hasIndices := false
	for _, f := range req.Select {
		if f == "AllIndices" {
			hasIndices = true
		}
	}
	if !hasIndices {
		t.Errorf("expected AllIndices in select when index constrains the query, got %v", req.Select)
	}
}

func TestCompile_ListByMetricFilter_BareMetric(t *testing.T) {
	// Underspecified filter: metric known, comparator and threshold missing.
	// No comparison clause is emitted; the request degenerates to a listing
	// that merely projects the metric.
	req := Compile(&models.QuerySpec{
		Mode:   models.ModeListByMetricFilter,
		Filter: &models.RangeFilter{Metric: "PE"},
	})

	if req.Filter != "" {
		t.Errorf("expected empty filter, got %q", req.Filter)
	}
	found := false
	for _, f := range req.Select {
		if f == "PE" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected PE in select, got %v", req.Select)
	}
}

func TestCompile_UnrecognizedComparatorDropped(t *testing.T) {
	req := Compile(&models.QuerySpec{
		Mode:   models.ModeListBySectorWithFilter,
		Sector: "Energy",
		Filter: &models.RangeFilter{Metric: "PE", Op: "between", Value: 10},
	})

	if strings.Contains(req.Filter, "between") {
		t.Errorf("unrecognized comparator must be dropped, got %q", req.Filter)
	}
	if req.Filter != "Sector eq 'Energy'" {
		t.Errorf("expected only the sector clause, got %q", req.Filter)
	}
}

func TestCompile_ThresholdEmittedVerbatim(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{50, "PE lt 50"},
		{12.5, "PE lt 12.5"},
		{0.75, "PE lt 0.75"},
	}

	for _, tt := range tests {
		req := Compile(&models.QuerySpec{
			Mode:   models.ModeListByMetricFilter,
			Filter: &models.RangeFilter{Metric: "PE", Op: "lt", Value: tt.value},
		})
		if req.Filter != tt.want {
			t.Errorf("value %v: expected %q, got %q", tt.value, tt.want, req.Filter)
		}
	}
}

func TestCompile_ClausesJoinedWithAnd(t *testing.T) {
	req := Compile(&models.QuerySpec{
		Mode:      models.ModeListByMetricFilter,
		IndexCode: "NIFTYBANK",
		Filter:    &models.RangeFilter{Metric: "PB", Op: "ge", Value: 2},
	})

	if !strings.Contains(req.Filter, " and ") {
		t.Errorf("expected conjunction, got %q", req.Filter)
	}
	if strings.Contains(req.Filter, " or ") {
		t.Errorf("OR is not supported, got %q", req.Filter)
	}
}

func TestCompile_Unknown(t *testing.T) {
	req := Compile(&models.QuerySpec{
		Mode: models.ModeUnknown,
		Raw:  models.RawQuery{Input: "gibberish input"},
	})

	if req.SearchText != "gibberish input" {
		t.Errorf("expected raw input as search text, got %q", req.SearchText)
	}
	if req.Top != 1 {
		t.Errorf("expected top 1, got %d", req.Top)
	}
	if !reflect.DeepEqual(req.Select, identityFields) {
		t.Errorf("expected identity select, got %v", req.Select)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	spec := Parse("nifty 50 stocks with pe less than 50")
	first := Compile(spec)
	for i := 0; i < 10; i++ {
		if got := Compile(spec); !reflect.DeepEqual(first, got) {
			t.Fatalf("Compile not deterministic: %+v vs %+v", first, got)
		}
	}
}
