package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"clawback/clawback/internal/models"

	"github.com/shopspring/decimal"
)

var (
	andSeparator       = regexp.MustCompile(`(?i)\s+and\s+`)
	ampersandSeparator = regexp.MustCompile(`\s*&\s*`)
	commaSeparator     = regexp.MustCompile(`\s*,\s*`)

	customSplitPair = regexp.MustCompile(`([a-zA-Z]+)\s*[:\s]\s*([\d.]+)`)
)

// Capitalize upper-cases the first letter and lower-cases the rest.
// Multi-word names only get their first word capitalized.
func Capitalize(name string) string {
	if name == "" {
		return name
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + strings.ToLower(name[size:])
}

// ParseNamesList splits "Dan, Sara & Avi and Ben" into capitalized names.
// Order is preserved and duplicates are kept.
func ParseNamesList(text string) []string {
	text = andSeparator.ReplaceAllString(text, ",")
	text = ampersandSeparator.ReplaceAllString(text, ",")
	text = commaSeparator.ReplaceAllString(text, ",")

	names := make([]string, 0)
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		names = append(names, Capitalize(part))
	}
	return names
}

// ParseCustomSplits reads "Dan:50, Sara:30" or "Dan 50, Sara 30".
//
// A repeated name keeps its first position but takes the last amount. Any
// malformed amount fails the whole clause.
func ParseCustomSplits(text string) ([]models.CustomSplit, bool) {
	matches := customSplitPair.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, false
	}

	entries := make([]models.CustomSplit, 0, len(matches))
	index := make(map[string]int, len(matches))
	for _, m := range matches {
		amount, err := decimal.NewFromString(m[2])
		if err != nil {
			return nil, false
		}
		name := Capitalize(m[1])
		if i, seen := index[name]; seen {
			entries[i].Amount = amount
			continue
		}
		index[name] = len(entries)
		entries = append(entries, models.CustomSplit{Person: name, Amount: amount})
	}
	return entries, true
}
