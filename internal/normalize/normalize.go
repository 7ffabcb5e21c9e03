// Package normalize cleans raw bank descriptions and folds text for comparison.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// boilerplate lists payment-rail phrases removed from descriptions, in order.
var boilerplate = []string{
	"CARD PAYMENT TO",
	"DIRECT DEBIT PAYMENT TO",
	"FASTER PAYMENTS RECEIPT REF",
	"FASTER PAYMENTS RECEIPT",
	"BANK GIRO CREDIT",
	"STANDING ORDER TO",
	"PAYMENT",
	"REF:",
	"CD ",
}

var (
	boilerplatePatterns = compile(boilerplate)
	whitespace          = regexp.MustCompile(`\s+`)
)

func compile(terms []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(terms))
	for _, term := range terms {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(term)))
	}
	return out
}

// Description strips payment-rail boilerplate from a raw description,
// collapses whitespace and trims. Case is preserved.
func Description(raw string) string {
	cleaned := raw
	for _, re := range boilerplatePatterns {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return Whitespace(cleaned)
}

// Fold returns a caseless form of s suitable for equality and substring checks.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Whitespace collapses runs of whitespace to one space and trims.
func Whitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
