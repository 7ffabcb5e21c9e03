package rules

import (
	"strings"
	"unicode/utf8"
)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "to": {}, "from": {},
	"for": {}, "in": {}, "on": {}, "at": {}, "by": {},
}

// DeriveKeyword picks the first token longer than two characters that is not
// a stopword, uppercased. When no token qualifies the first token is used.
// An empty description yields "".
func DeriveKeyword(normalized string) string {
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return ""
	}

	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) <= 2 {
			continue
		}
		if _, stop := stopwords[strings.ToLower(tok)]; stop {
			continue
		}
		return strings.ToUpper(tok)
	}
	return strings.ToUpper(tokens[0])
}
