package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	checklistSuffixPattern = regexp.MustCompile(`(?i)\s*-\s*(?:trading card\b.*|[^-]*\bchecklist\b.*)$`)
	leadingYearPattern     = regexp.MustCompile(`^(\d{4})\s`)
)

// TitleCleaner turns a category detail page title into a display name and year.
type TitleCleaner struct {
	typeSuffix *regexp.Regexp
}

// NewTitleCleaner strips typeWord (e.g. "Baseball") when it trails a title.
func NewTitleCleaner(typeWord string) *TitleCleaner {
	tc := &TitleCleaner{}
	if word := strings.TrimSpace(typeWord); word != "" {
		tc.typeSuffix = regexp.MustCompile(`(?i)\s*\b` + regexp.QuoteMeta(word) + `\s*$`)
	}
	return tc
}

// Clean removes the checklist boilerplate and trailing type word, then reads a
// leading four-digit year followed by whitespace. Season names such as
// "1990-91 Upper Deck" and a bare year get year 0.
func (tc *TitleCleaner) Clean(title string) (string, int) {
	name := strings.TrimSpace(normalizeSpace(title))
	name = strings.TrimSpace(checklistSuffixPattern.ReplaceAllString(name, ""))
	if tc.typeSuffix != nil {
		name = strings.TrimSpace(tc.typeSuffix.ReplaceAllString(name, ""))
	}

	year := 0
	if m := leadingYearPattern.FindStringSubmatch(name); m != nil {
		year, _ = strconv.Atoi(m[1])
	}
	return name, year
}

// ParseCategoryTitle extracts the cleaned display name and year from a
// category detail page.
func (tc *TitleCleaner) ParseCategoryTitle(doc *Document) (string, int) {
	return tc.Clean(doc.Title())
}
