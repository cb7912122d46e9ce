package parser

import (
	"regexp"
	"strconv"

	"github.com/aluiziolira/go-scrape-collection/models"
)

var (
	recordsParamPattern = regexp.MustCompile(`(?i)records=(\d+)`)
	itemTextPattern     = regexp.MustCompile(`(?i)\bof\s+(\d{1,3}(?:[,.' ]\d{3})+|\d+)\s+items?\b`)
	recordTextPattern   = regexp.MustCompile(`(?i)\b(\d{1,3}(?:[,.' ]\d{3})+|\d+)\s+record\(s\)`)
	pageIndexPattern    = regexp.MustCompile(`(?i)pageindex=(\d+)`)
)

// EstimateTotal infers the collection size from the seed page. The first
// marker found wins: a records= value in the body, an "of N items" (or
// "N record(s)") phrase in the visible text, then the highest pagination
// index times pageSize. When nothing matches, one page is assumed.
func EstimateTotal(doc *Document, pageSize int) models.Estimate {
	if pageSize < 1 {
		pageSize = 1
	}

	if m := recordsParamPattern.FindStringSubmatch(doc.Raw()); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return models.Estimate{Total: n, Source: models.EstimateFromRecordsParam}
		}
	}

	text := doc.Text()
	for _, pattern := range []*regexp.Regexp{itemTextPattern, recordTextPattern} {
		if m := pattern.FindStringSubmatch(text); m != nil {
			if n, ok := parseCount(m[1]); ok && n > 0 {
				return models.Estimate{Total: n, Source: models.EstimateFromItemText}
			}
		}
	}

	maxIndex := 0
	for _, href := range doc.LinkTargets() {
		for _, m := range pageIndexPattern.FindAllStringSubmatch(href, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxIndex {
				maxIndex = n
			}
		}
	}
	if maxIndex > 0 {
		return models.Estimate{Total: maxIndex * pageSize, Source: models.EstimateFromPagination}
	}

	return models.Estimate{Total: pageSize, Source: models.EstimateFallback}
}

// PageCount returns ceil(total/pageSize), never less than one.
func PageCount(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	if total < 1 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
