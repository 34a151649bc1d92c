package service

import (
	"strings"
	"unicode"
)

// stopWords are tokens that carry no retrieval signal. The set is fixed;
// keyword extraction drops them along with tokens of length <= 2.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "any": {}, "can": {}, "had": {}, "has": {},
	"have": {}, "her": {}, "his": {}, "how": {}, "its": {}, "our": {},
	"out": {}, "she": {}, "was": {}, "who": {}, "why": {}, "will": {},
	"with": {}, "this": {}, "that": {}, "they": {}, "them": {}, "then": {},
	"there": {}, "their": {}, "these": {}, "those": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "would": {}, "could": {},
	"should": {}, "about": {}, "does": {}, "from": {}, "your": {},
	"much": {}, "many": {}, "some": {}, "very": {},
}

// tokenize lowercases the text and splits it on every non-alphanumeric
// boundary.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// extractKeywords returns the question tokens worth matching literally:
// longer than 2 characters and not stop words.
func extractKeywords(question string) []string {
	var keywords []string
	for _, token := range tokenize(question) {
		if len(token) <= 2 {
			continue
		}
		if _, ok := stopWords[token]; ok {
			continue
		}
		keywords = append(keywords, token)
	}
	return keywords
}

// keywordBoost counts keywords literally present in the candidate's
// searchable text and returns perMatch per hit, capped at cap. The boost
// corrects cases where embedding similarity misses exact terminology.
func keywordBoost(keywords []string, searchable string, perMatch, cap float64) float64 {
	if len(keywords) == 0 || searchable == "" {
		return 0
	}
	haystack := strings.ToLower(searchable)

	var boost float64
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			boost += perMatch
		}
	}
	if boost > cap {
		return cap
	}
	return boost
}
