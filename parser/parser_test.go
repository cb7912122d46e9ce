package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-scrape-collection/models"
)

const collectionFixture = `
<table width="100%" border="0" cellpadding="0" cellspacing="0">
<tr class="collection_row">
  <td><button type="button" class="btn btn-primary"><span class="badge bg-light text-dark">2</span></button></td>
  <td nowrap width="4">&nbsp;</td>
  <td nowrap valign="top"><a href="/ViewCard.cfm/sid/404413/cid/23860904/2024-Topps-3-Endy-Rodriguez">3</a></td>
  <td nowrap width="2">&nbsp;</td>
  <td valign="top" class="w-100"><a href="/ViewCard.cfm/sid/404413/cid/23860904/2024-Topps-3-Endy-Rodriguez">Endy Rodríguez</a> RC</td>
  <td align="right"><a target="_blank" href="https://www.ebay.com/sch/"><i class="fa-brands fa-ebay"></i></a></td>
</tr>
<tr><td colspan="6"><div id="hideDiv1" style="display:none"></div></td></tr>
<tr class="collection_row">
  <td><button type="button" class="btn btn-primary"><span class="badge bg-light text-dark">1</span></button></td>
  <td nowrap width="4">&nbsp;</td>
  <td nowrap valign="top"><a href="/ViewCard.cfm/sid/333/cid/114503/1994-Finest-100-Frank-Thomas">100</a></td>
  <td nowrap width="2">&nbsp;</td>
  <td valign="top" class="w-100"><a href="/ViewCard.cfm/sid/333/cid/114503/1994-Finest-100-Frank-Thomas">Frank Thomas</a></td>
  <td align="right"></td>
</tr>
</table>
<p><em>592 record(s)</em></p>
`

func mustDocument(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := NewDocument([]byte(html))
	require.NoError(t, err)
	return doc
}

func TestParseCollectionPage(t *testing.T) {
	records := ParseCollectionPage(mustDocument(t, collectionFixture))

	want := []models.Record{
		{Identifier: "3", SubjectName: "Endy Rodríguez", Quantity: 2, VariantSuffix: "RC", CategoryID: 404413, ItemID: 23860904},
		{Identifier: "100", SubjectName: "Frank Thomas", Quantity: 1, VariantSuffix: "", CategoryID: 333, ItemID: 114503},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCollectionPageRowRules(t *testing.T) {
	row := func(first, third, fifth string) string {
		return fmt.Sprintf("<tr><td>%s</td><td></td><td>%s</td><td></td><td>%s</td></tr>", first, third, fifth)
	}
	link := `<a href="/ViewCard.cfm/sid/500/cid/7/x"> 12a </a>`

	tests := []struct {
		name string
		html string
		want []models.Record
	}{
		{
			name: "badge three without suffix",
			html: row(`<span class="badge">3</span>`, link, `<a href="#">Ken Griffey Jr.</a>`),
			want: []models.Record{{Identifier: "12a", SubjectName: "Ken Griffey Jr.", Quantity: 3, CategoryID: 500, ItemID: 7}},
		},
		{
			name: "unparsable badge defaults to one",
			html: row(`<span class="badge">x</span>`, link, `Plain Name`),
			want: []models.Record{{Identifier: "12a", SubjectName: "Plain Name", Quantity: 1, CategoryID: 500, ItemID: 7}},
		},
		{
			name: "zero badge defaults to one",
			html: row(`<span class="badge">0</span>`, link, `Plain Name`),
			want: []models.Record{{Identifier: "12a", SubjectName: "Plain Name", Quantity: 1, CategoryID: 500, ItemID: 7}},
		},
		{
			name: "suffix after linked name",
			html: row(``, link, `<a href="#">Mike Trout</a> SP  AU`),
			want: []models.Record{{Identifier: "12a", SubjectName: "Mike Trout", Quantity: 1, VariantSuffix: "SP  AU", CategoryID: 500, ItemID: 7}},
		},
		{
			name: "too few cells",
			html: `<tr><td></td><td></td><td>` + link + `</td><td></td></tr>`,
			want: []models.Record{},
		},
		{
			name: "link in wrong cell",
			html: row(link, `12a`, `Name`),
			want: []models.Record{},
		},
		{
			name: "link without ids",
			html: row(``, `<a href="/ViewSet.cfm/sid/500">set</a>`, `Name`),
			want: []models.Record{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCollectionPage(mustDocument(t, "<table>"+tt.html+"</table>"))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseCollectionPageNoRows(t *testing.T) {
	for _, html := range []string{"", "<html><body><p>nothing here</p></body></html>", "<table><tr><td>1</td></tr></table>"} {
		records := ParseCollectionPage(mustDocument(t, html))
		require.NotNil(t, records)
		assert.Empty(t, records)
	}
}

func TestEstimateTotal(t *testing.T) {
	tests := []struct {
		name       string
		html       string
		wantTotal  int
		wantSource string
	}{
		{
			name:       "records marker",
			html:       `<a href="/ViewCollectionMode.cfm?Records=37&PageIndex=1">1</a>`,
			wantTotal:  37,
			wantSource: models.EstimateFromRecordsParam,
		},
		{
			name:       "records marker wins over text",
			html:       `<script>var q = "records=250";</script><p>1 - 100 of 9,999 items</p>`,
			wantTotal:  250,
			wantSource: models.EstimateFromRecordsParam,
		},
		{
			name:       "of N items with separators",
			html:       `<p>Showing 1 - 100 of 1,234 items</p>`,
			wantTotal:  1234,
			wantSource: models.EstimateFromItemText,
		},
		{
			name:       "record count phrase",
			html:       collectionFixture,
			wantTotal:  592,
			wantSource: models.EstimateFromItemText,
		},
		{
			name:       "count text followed by another block",
			html:       `<div>1 - 100 of 592 items</div><div>Page 1</div>`,
			wantTotal:  592,
			wantSource: models.EstimateFromItemText,
		},
		{
			name:       "count text in adjacent cells",
			html:       `<table><tr><td>of 1,234 items</td><td>Sort</td></tr></table>`,
			wantTotal:  1234,
			wantSource: models.EstimateFromItemText,
		},
		{
			name:       "count split by inline markup",
			html:       `<p>Showing 1 - 100 of <b>2,048</b> items</p>`,
			wantTotal:  2048,
			wantSource: models.EstimateFromItemText,
		},
		{
			name:       "record phrase after a page number",
			html:       `<span>Page 1</span><span>592 record(s)</span>`,
			wantTotal:  592,
			wantSource: models.EstimateFromItemText,
		},
		{
			name:       "pagination links",
			html:       `<a href="?pageIndex=2">2</a><a href="?PageIndex=7">7</a><a href="?pageindex=3">3</a>`,
			wantTotal:  700,
			wantSource: models.EstimateFromPagination,
		},
		{
			name:       "fallback to one page",
			html:       `<p>no markers</p>`,
			wantTotal:  100,
			wantSource: models.EstimateFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTotal(mustDocument(t, tt.html), 100)
			assert.Equal(t, tt.wantTotal, got.Total)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{total: 37, size: 100, want: 1},
		{total: 100, size: 100, want: 1},
		{total: 101, size: 100, want: 2},
		{total: 1234, size: 100, want: 13},
		{total: 0, size: 100, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageCount(tt.total, tt.size), "PageCount(%d, %d)", tt.total, tt.size)
	}
}

func TestTitleCleaner(t *testing.T) {
	cleaner := NewTitleCleaner("Baseball")

	tests := []struct {
		title    string
		wantName string
		wantYear int
	}{
		{title: "2024 Topps Baseball - Trading Card Checklist", wantName: "2024 Topps", wantYear: 2024},
		{title: "1994 Finest - Baseball Card Checklist", wantName: "1994 Finest", wantYear: 1994},
		{title: "2023-24 Upper Deck - Update - Checklist", wantName: "2023-24 Upper Deck - Update", wantYear: 0},
		{title: "1990-91 Upper Deck Hockey", wantName: "1990-91 Upper Deck Hockey", wantYear: 0},
		{title: "2023", wantName: "2023", wantYear: 0},
		{title: "Topps Now baseball", wantName: "Topps Now", wantYear: 0},
		{title: "   ", wantName: "", wantYear: 0},
		{title: "12345 Odd Set", wantName: "12345 Odd Set", wantYear: 0},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			name, year := cleaner.Clean(tt.title)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantYear, year)
		})
	}
}

func TestParseCategoryTitleFallsBackToHeading(t *testing.T) {
	doc := mustDocument(t, `<html><head></head><body><h1>1989 Upper Deck Baseball</h1></body></html>`)
	name, year := NewTitleCleaner("Baseball").ParseCategoryTitle(doc)
	assert.Equal(t, "1989 Upper Deck", name)
	assert.Equal(t, 1989, year)
}

func TestDocumentTextNormalisesNBSP(t *testing.T) {
	doc := mustDocument(t, "<p>of&nbsp;12&nbsp;items</p>")
	assert.True(t, strings.Contains(doc.Text(), "of 12 items"))
}

func TestDocumentTextSeparatesElements(t *testing.T) {
	doc := mustDocument(t, `<div>of 592 items</div><div>Page 1</div><script>var x = "hidden";</script>`)
	text := doc.Text()
	assert.NotContains(t, text, "itemsPage")
	assert.NotContains(t, text, "hidden")
	assert.Contains(t, text, "of 592 items")
}
