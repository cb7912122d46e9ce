// Package pipeline groups crawled records into the import payload and
// delivers it through the configured output channels.
package pipeline

import (
	"sort"

	"github.com/aluiziolira/go-scrape-collection/models"
)

// Aggregate partitions records by category, preserving encounter order inside
// each group, and sorts the groups by year descending then name ascending.
// Categories missing from infos get the placeholder name and year 0.
func Aggregate(records []models.Record, infos map[int]models.CategoryInfo) *models.CrawlResult {
	order := make([]int, 0)
	members := make(map[int][]models.Record)
	for _, rec := range records {
		if _, ok := members[rec.CategoryID]; !ok {
			order = append(order, rec.CategoryID)
		}
		members[rec.CategoryID] = append(members[rec.CategoryID], rec)
	}

	groups := make([]models.CategoryGroup, 0, len(order))
	total := 0
	for _, id := range order {
		info, ok := infos[id]
		if !ok || info.DisplayName == "" {
			info = models.PlaceholderCategory(id)
		}
		items := members[id]
		groups = append(groups, models.CategoryGroup{
			CategoryID: id,
			Name:       info.DisplayName,
			Year:       info.Year,
			ItemCount:  len(items),
			Items:      items,
		})
		total += len(items)
	}

	SortGroups(groups)

	return &models.CrawlResult{
		TotalItems:      total,
		TotalCategories: len(groups),
		Categories:      groups,
	}
}

// SortGroups orders groups by Year descending, then Name ascending (byte-wise).
// Equal keys keep their relative order.
func SortGroups(groups []models.CategoryGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Year != groups[j].Year {
			return groups[i].Year > groups[j].Year
		}
		return groups[i].Name < groups[j].Name
	})
}
