// Package query turns free-text financial queries ("pe of reliance",
// "nifty bank stocks with pe less than 50") into structured query specs and
// compiles those specs into backend-agnostic search requests.
//
// The whole package is pure: no I/O, no mutable state beyond alias tables
// built once at init, deterministic output for identical input.
package query

import "github.com/shubhsaxena/stock-search-assistant/internal/models"

var defaultRouter = NewRouter(NewDetector(DefaultRegistry(), nil))

// Parse classifies text into exactly one QuerySpec using the default alias
// registry and sector guard. It never fails; unrecognized input degrades to
// an overview or unknown spec.
func Parse(text string) *models.QuerySpec {
	return defaultRouter.Route(text)
}
