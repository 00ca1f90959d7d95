package utils

import (
	"regexp"
	"strings"
	"unicode"

	"core/internal/model"
)

var keywordPattern = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)

// ExtractKeywords extracts the set of feature keywords from a product title:
// case-folded alphabetic tokens of 4+ characters, duplicates collapsed.
func ExtractKeywords(text string) map[string]bool {
	keywords := make(map[string]bool)
	for _, word := range keywordPattern.FindAllString(strings.ToLower(text), -1) {
		keywords[word] = true
	}
	return keywords
}

// ExtractBrand guesses a product's brand, lower-cased. An explicit brand
// field wins; otherwise the first title-case word of the title is used.
// Returns "" when nothing qualifies. The title-case scan is knowingly loose:
// a sentence-initial capitalized word also matches.
func ExtractBrand(p model.Product) string {
	if p.Brand != "" {
		return strings.ToLower(p.Brand)
	}
	for _, word := range strings.Fields(p.Title) {
		if isTitleCase(word) {
			return strings.ToLower(word)
		}
	}
	return ""
}

// isTitleCase reports whether a word is written as a single capitalized word:
// first letter upper-case, the rest lower-case.
func isTitleCase(word string) bool {
	runes := []rune(word)
	if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
