package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shubhsaxena/stock-search-assistant/internal/models"
)

// Field sets projected per mode. Order is fixed for reproducible requests.
var (
	identityFields = []string{"SymbolRaw", "Name", "Symbol"}
	overviewFields = []string{
		"Symbol", "SymbolRaw", "Name", "Sector", "MarketCapCr",
		"PE", "PB", "EPS", "DividendYieldPct", "AllIndices",
	}
)

// listPageSize caps listing modes; single-entity modes always take top 1.
const listPageSize = 50

// Compile maps a QuerySpec onto a backend-agnostic search request: search
// text, OData-style filter, field projection, paging. Pure and total; it
// never rejects a spec, it only omits clauses it cannot express.
func Compile(spec *models.QuerySpec) *models.CompiledRequest {
	switch spec.Mode {
	case models.ModeSingleStockMetric:
		return &models.CompiledRequest{
			SearchText:   spec.StockQuery,
			SearchFields: identityFields,
			Select:       appendField(identityFields, spec.Metric),
			Top:          1,
		}

	case models.ModeSingleStockOverview:
		return &models.CompiledRequest{
			SearchText:   spec.StockQuery,
			SearchFields: identityFields,
			Select:       overviewFields,
			Top:          1,
		}

	case models.ModeListByIndex:
		return &models.CompiledRequest{
			SearchText:   "*",
			Filter:       indexMembershipClause(spec.IndexCode),
			Select:       overviewFields,
			Top:          listPageSize,
			IncludeCount: true,
		}

	case models.ModeListBySector:
		return &models.CompiledRequest{
			SearchText:   "*",
			Filter:       sectorClause(spec.Sector),
			Select:       appendField(identityFields, "Sector"),
			Top:          listPageSize,
			IncludeCount: true,
		}

	case models.ModeListBySectorWithFilter:
		sel := appendField(identityFields, "Sector")
		if spec.Filter != nil {
			sel = appendField(sel, spec.Filter.Metric)
		}
		return &models.CompiledRequest{
			SearchText:   "*",
			Filter:       joinClauses(sectorClause(spec.Sector), comparisonClause(spec.Filter)),
			Select:       sel,
			Top:          listPageSize,
			IncludeCount: true,
		}

	case models.ModeListByMetricFilter:
		sel := appendField(identityFields, "Sector")
		if spec.Filter != nil {
			sel = appendField(sel, spec.Filter.Metric)
		}
		if spec.IndexCode != "" {
			sel = appendField(sel, "AllIndices")
		}
		return &models.CompiledRequest{
			SearchText:   "*",
			Filter:       joinClauses(indexMembershipClause(spec.IndexCode), comparisonClause(spec.Filter)),
			Select:       sel,
			Top:          listPageSize,
			IncludeCount: true,
		}

	default:
		searchText := spec.StockQuery
		if searchText == "" {
			searchText = spec.Raw.Input
		}
		return &models.CompiledRequest{
			SearchText:   searchText,
			SearchFields: identityFields,
			Select:       identityFields,
			Top:          1,
		}
	}
}

// comparisonClause renders "PE lt 20". An unrecognized comparator or missing
// metric yields "" and the clause is simply dropped, never an error.
func comparisonClause(f *models.RangeFilter) string {
	if f == nil || f.Metric == "" {
		return ""
	}
	switch f.Op {
	case "lt", "gt", "le", "ge":
	default:
		return ""
	}
	return fmt.Sprintf("%s %s %s", f.Metric, f.Op, strconv.FormatFloat(f.Value, 'f', -1, 64))
}

// indexMembershipClause asserts the index code occurs in the entity's
// index-membership collection.
func indexMembershipClause(code string) string {
	if code == "" {
		return ""
	}
	return fmt.Sprintf("AllIndices/any(i: i eq '%s')", code)
}

func sectorClause(sector string) string {
	if sector == "" {
		return ""
	}
	return fmt.Sprintf("Sector eq '%s'", sector)
}

// joinClauses conjoins non-empty clauses with "and". There is no "or".
func joinClauses(clauses ...string) string {
	var kept []string
	for _, c := range clauses {
		if c != "" {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, " and ")
}

// appendField adds field to fields unless already present, without mutating
// the input slice.
func appendField(fields []string, field string) []string {
	if field == "" {
		return fields
	}
	for _, f := range fields {
		if f == field {
			return fields
		}
	}
	out := make([]string, 0, len(fields)+1)
	out = append(out, fields...)
	return append(out, field)
}
