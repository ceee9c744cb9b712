package models

import "testing"

func TestMode_String(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeUnknown, "unknown"},
		{ModeSingleStockMetric, "single_stock_metric"},
		{ModeSingleStockOverview, "single_stock_overview"},
		{ModeListByIndex, "list_by_index"},
		{ModeListBySector, "list_by_sector"},
		{ModeListBySectorWithFilter, "list_by_sector_with_filter"},
		{ModeListByMetricFilter, "list_by_metric_filter"},
		{Mode(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", int(tt.mode), got, tt.want)
		}
	}
}
