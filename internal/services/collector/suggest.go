package collector

import "strings"

const maxSuggestions = 5

// wellKnown maps common company names to their listing symbols
var wellKnown = []struct {
	name   string
	symbol string
}{
	{"apple", "AAPL.US"},
	{"microsoft", "MSFT.US"},
	{"google", "GOOGL.US"},
	{"amazon", "AMZN.US"},
	{"tesla", "TSLA.US"},
	{"meta", "META.US"},
	{"netflix", "NFLX.US"},
	{"nvidia", "NVDA.US"},
	{"samsung", "005930.KS"},
	{"sk hynix", "000660.KS"},
	{"lg chem", "051910.KS"},
	{"kakao", "035720.KS"},
	{"naver", "035420.KS"},
}

// wellKnownMatches returns symbols whose company name contains the query or is
// contained in it.
func wellKnownMatches(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []string
	for _, entry := range wellKnown {
		if strings.Contains(entry.name, q) || strings.Contains(q, entry.name) {
			out = append(out, entry.symbol)
		}
	}
	return out
}

func dedupe(symbols []string, limit int) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, limit)
	for _, s := range symbols {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
