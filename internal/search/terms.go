package search

import "strings"

// searchStopWords are common English words filtered from keyword search terms.
var searchStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "shall": true, "can": true,
	"of": true, "in": true, "to": true, "for": true, "with": true,
	"on": true, "at": true, "from": true, "by": true, "about": true,
	"as": true, "into": true, "through": true, "during": true,
	"and": true, "or": true, "but": true, "not": true, "so": true,
	"what": true, "how": true, "when": true, "where": true, "which": true,
	"who": true, "whom": true, "this": true, "that": true, "these": true,
	"those": true, "it": true, "its": true, "my": true, "your": true,
	"our": true, "their": true, "i": true, "me": true, "we": true,
	"you": true, "he": true, "she": true, "they": true, "them": true,
	"explain": true, "describe": true, "tell": true, "show": true,
	"work": true, "works": true, "project": true, "help": true,
	"find": true, "search": true,
}

// meaningfulShortTerms are 2-character terms that carry domain meaning and
// survive the short-term filter despite searchStopWords' general cutoff.
var meaningfulShortTerms = map[string]bool{
	"ai": true, "os": true, "pm": true, "qa": true,
	"ui": true, "ux": true, "hr": true, "ml": true,
}

// ExtractSearchTerms extracts meaningful search terms from a natural
// language query, filtering stop words and short terms, preserving first
// occurrence order with duplicates removed.
func ExtractSearchTerms(query string) []string {
	words := strings.Fields(query)
	var terms []string
	seen := make(map[string]bool)
	for _, w := range words {
		lower := strings.ToLower(w)
		lower = strings.Trim(lower, ".,;:!?\"'()[]{}")
		if len(lower) < 2 {
			continue
		}
		if len(lower) == 2 && !meaningfulShortTerms[lower] {
			continue
		}
		if searchStopWords[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		terms = append(terms, lower)
	}
	return terms
}

// BuildMatchExpression builds an FTS5 MATCH expression ORing each term so
// any one of them can satisfy the query, matching the lenient recall the
// hybrid search's lexical leg expects.
func BuildMatchExpression(terms []string) string {
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}
