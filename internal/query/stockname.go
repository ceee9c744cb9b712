package query

import (
	"regexp"
	"strings"
)

// stockStopwords are question/filler words and generic finance nouns that
// never carry a company name. Sector words are deliberately NOT in this set:
// stripping them would erase company names that contain them.
var stockStopwords = map[string]bool{
	"what": true, "is": true, "the": true, "of": true, "for": true,
	"give": true, "me": true, "show": true, "tell": true,
	"stock": true, "stocks": true, "share": true, "shares": true,
	"price": true, "pe": true, "p/e": true, "eps": true,
	"dividend": true, "yield": true, "market": true, "cap": true,
	"in": true, "on": true, "all": true,
	"sector": true, "sectors": true, "industry": true,
}

var stockTokenRe = regexp.MustCompile(`[a-zA-Z0-9&.\-]+`)

// ExtractStockName strips stopwords and the matched metric phrase from the
// normalized text and returns what remains as a best-effort company-name
// query. Returns "" when nothing remains.
func ExtractStockName(text string, metric *Detection) string {
	tokens := stockTokenRe.FindAllString(text, -1)

	metricTokens := map[string]bool{}
	if metric != nil {
		for _, t := range strings.Fields(metric.Phrase) {
			metricTokens[t] = true
		}
	}

	var kept []string
	for _, tok := range tokens {
		if stockStopwords[tok] {
			continue
		}
		if metricTokens[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}
