package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-collection/models"
)

const minRowCells = 5

var itemLinkPattern = regexp.MustCompile(`/sid/(\d+)/cid/(\d+)`)

// ParseCollectionPage extracts one Record per qualifying table row. Rows
// without an item reference link are skipped; a page without any yields an
// empty slice.
func ParseCollectionPage(doc *Document) []models.Record {
	records := make([]models.Record, 0)
	doc.Rows().Each(func(_ int, row *goquery.Selection) {
		if record, ok := parseRow(row); ok {
			records = append(records, record)
		}
	})
	return records
}

func parseRow(row *goquery.Selection) (models.Record, bool) {
	cells := row.ChildrenFiltered("td")
	if cells.Length() < minRowCells {
		return models.Record{}, false
	}

	link, categoryID, itemID, ok := itemLink(cells.Eq(2))
	if !ok {
		return models.Record{}, false
	}

	nameCell := cells.Eq(4)
	cellText := strings.TrimSpace(normalizeSpace(nameCell.Text()))
	subject := strings.TrimSpace(normalizeSpace(nameCell.Find("a").First().Text()))
	if subject == "" {
		subject = cellText
	}

	return models.Record{
		Identifier:    strings.TrimSpace(normalizeSpace(link.Text())),
		SubjectName:   subject,
		Quantity:      parseQuantity(cells.Eq(0)),
		VariantSuffix: variantSuffix(cellText, subject),
		CategoryID:    categoryID,
		ItemID:        itemID,
	}, true
}

func itemLink(cell *goquery.Selection) (*goquery.Selection, int, int, bool) {
	var (
		link       *goquery.Selection
		categoryID int
		itemID     int
	)
	cell.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		m := itemLinkPattern.FindStringSubmatch(href)
		if m == nil {
			return true
		}
		sid, err := strconv.Atoi(m[1])
		if err != nil {
			return true
		}
		cid, err := strconv.Atoi(m[2])
		if err != nil {
			return true
		}
		link, categoryID, itemID = a, sid, cid
		return false
	})
	return link, categoryID, itemID, link != nil
}

// parseQuantity reads the count badge; anything missing or below one counts as a single copy.
func parseQuantity(cell *goquery.Selection) int {
	badge := cell.Find(".badge").First()
	if badge.Length() == 0 {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(normalizeSpace(badge.Text())))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func variantSuffix(cellText, subject string) string {
	if subject == "" || !strings.HasPrefix(cellText, subject) {
		return ""
	}
	return strings.TrimSpace(cellText[len(subject):])
}
