package models

// Mode discriminates the structured interpretations a free-text query can
// resolve to. Exactly one mode is chosen per query.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeSingleStockMetric
	ModeSingleStockOverview
	ModeListByIndex
	ModeListBySector
	ModeListBySectorWithFilter
	ModeListByMetricFilter
)

func (m Mode) String() string {
	switch m {
	case ModeSingleStockMetric:
		return "single_stock_metric"
	case ModeSingleStockOverview:
		return "single_stock_overview"
	case ModeListByIndex:
		return "list_by_index"
	case ModeListBySector:
		return "list_by_sector"
	case ModeListBySectorWithFilter:
		return "list_by_sector_with_filter"
	case ModeListByMetricFilter:
		return "list_by_metric_filter"
	default:
		return "unknown"
	}
}

// RangeFilter is a metric/comparator/threshold triple extracted from free
// text, e.g. "pe less than 20". Op is one of lt, gt, le, ge.
type RangeFilter struct {
	Metric          string  `json:"metric"`
	Op              string  `json:"op"`
	Value           float64 `json:"value"`
	RawMetricPhrase string  `json:"raw_metric_phrase,omitempty"`
	RawCompPhrase   string  `json:"raw_comp_phrase,omitempty"`
}

// RawQuery records the original input and the sub-phrases that matched during
// detection. It is carried for auditing only and never affects routing.
type RawQuery struct {
	Input        string `json:"input"`
	MetricPhrase string `json:"metric_phrase,omitempty"`
	CompPhrase   string `json:"comp_phrase,omitempty"`
}

// QuerySpec is the structured interpretation of a free-text query. Mode
// determines which of the optional fields are meaningful; fields belonging to
// other modes are left at their zero value.
type QuerySpec struct {
	Mode       Mode         `json:"mode"`
	StockQuery string       `json:"stock_query,omitempty"`
	Metric     string       `json:"metric,omitempty"`
	IndexCode  string       `json:"index_code,omitempty"`
	Sector     string       `json:"sector,omitempty"`
	Filter     *RangeFilter `json:"metric_filter,omitempty"`
	Raw        RawQuery     `json:"raw"`
}

// CompiledRequest is the backend-agnostic search request derived from a
// QuerySpec. Filter is an OData-style expression; empty means unfiltered.
type CompiledRequest struct {
	SearchText   string   `json:"search"`
	Filter       string   `json:"filter,omitempty"`
	SearchFields []string `json:"search_fields,omitempty"`
	Select       []string `json:"select"`
	Top          int      `json:"top"`
	IncludeCount bool     `json:"count"`
}
