// Package pattern derives stable matching patterns and readable names from
// raw bank transaction descriptions.
package pattern

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NoisePrefixes are stripped from the front of descriptions, in order.
var NoisePrefixes = []string{"EFTPOS ", "VISA PURCHASE ", "DIRECT DEBIT "}

// currencySuffix is appended by some banks to card purchases.
const currencySuffix = " AU$"

// trailingReference matches a run of 4+ digits and everything after it.
var trailingReference = regexp.MustCompile(`\s*\d{4,}.*$`)

// Extract returns the merchant matching pattern for a description.
//
//	"EFTPOS COLES 1234 5678" -> "COLES"
//
// An empty result means "no pattern"; callers must never treat it as a
// wildcard.
func Extract(description string) string {
	p := description
	if loc := trailingReference.FindStringIndex(p); loc != nil {
		p = p[:loc[0]]
	}
	p = stripPrefixes(p)
	return strings.TrimSpace(p)
}

// Clean returns a display name for a description: noise prefixes and the
// trailing currency marker removed, title-cased when the input was shouting.
func Clean(description string) string {
	cleaned := stripPrefixes(strings.TrimSpace(description))
	cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, currencySuffix))
	if description == strings.ToUpper(description) {
		cleaned = cases.Title(language.English).String(cleaned)
	}
	return cleaned
}

// IsEmpty reports whether p carries no matching information.
func IsEmpty(p string) bool {
	return strings.TrimSpace(p) == ""
}

func stripPrefixes(s string) string {
	for _, prefix := range NoisePrefixes {
		s = strings.TrimPrefix(s, prefix)
	}
	return s
}
