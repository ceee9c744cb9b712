package query

import "strings"

// SectorGuard decides whether a sector-table match is really part of a
// company name. It is an interface so the heuristic can be swapped for a
// known-company lookup without touching the router.
type SectorGuard interface {
	IsCompanyName(text string, match Detection) bool
}

// listingGuard is the default heuristic. Sector keywords are frequently
// substrings of proper nouns ("axis bank", "bajaj auto"), so on short queries
// with no listing context it inspects the token in front of the matched
// keyword and vetoes the sector reading when that token looks like a company
// word. Trades recall for avoiding that false-positive class.
type listingGuard struct{}

func NewListingGuard() SectorGuard {
	return listingGuard{}
}

// listingContextWords signal the user wants a collection of stocks, not a
// single entity.
var listingContextWords = map[string]bool{
	"stocks":    true,
	"companies": true,
	"list":      true,
	"show":      true,
	"all":       true,
	"sector":    true,
	"in":        true,
}

// sectorModifierWords may legitimately precede a sector keyword in a listing
// query ("all banks", "top auto", "nifty banking").
var sectorModifierWords = map[string]bool{
	"all":     true,
	"top":     true,
	"best":    true,
	"leading": true,
	"banking": true,
	"nifty":   true,
}

func (listingGuard) IsCompanyName(text string, match Detection) bool {
	tokens := strings.Fields(text)
	if len(tokens) > 3 {
		return false
	}
	for _, tok := range tokens {
		if listingContextWords[tok] {
			return false
		}
	}

	// The sector phrase matched somewhere inside the text; find the token
	// carrying its final keyword and look at what sits in front of it.
	phraseTokens := strings.Fields(match.Phrase)
	lastKeyword := phraseTokens[len(phraseTokens)-1]

	for i := 1; i < len(tokens); i++ {
		if !strings.Contains(tokens[i], lastKeyword) {
			continue
		}
		prev := tokens[i-1]
		if !sectorModifierWords[prev] && len(prev) > 2 {
			return true
		}
	}
	return false
}
