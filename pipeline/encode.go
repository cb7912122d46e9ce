package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-collection/models"
)

// Encode serialises result as indented JSON with a trailing newline. Empty
// collections encode as [] so the importer never sees null.
func Encode(result *models.CrawlResult) ([]byte, error) {
	if result == nil {
		return nil, errors.New("encode: nil result")
	}

	out := *result
	out.Categories = make([]models.CategoryGroup, len(result.Categories))
	for i, group := range result.Categories {
		if group.Items == nil {
			group.Items = []models.Record{}
		}
		out.Categories[i] = group
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return buf.Bytes(), nil
}
