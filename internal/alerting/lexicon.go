package alerting

import "strings"

// defaultNegativeKeywords is the lexicon scanned against SERP titles and
// snippets when no override is configured. Matching is case-insensitive
// substring, so entries should stay lowercase.
var defaultNegativeKeywords = []string{
	"fraud", "scam", "complaint", "lawsuit", "ripoff",
	"arrest", "bankruptcy", "scandal", "investigation", "recall",
	"warning", "avoid", "exposed", "class action",
}

// matchNegativeKeyword returns the first lexicon term contained in the
// content, or "" when nothing matches.
func matchNegativeKeyword(content string, terms []string) string {
	content = strings.ToLower(content)
	for _, term := range terms {
		if strings.Contains(content, strings.ToLower(term)) {
			return term
		}
	}
	return ""
}
