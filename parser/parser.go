// Package parser extracts records and metadata from catalog HTML pages.
package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed HTML page that answers the structural queries the
// extractors need. It keeps the raw body for marker searches that must see
// attribute values and scripts.
type Document struct {
	raw string
	doc *goquery.Document
}

// NewDocument parses body as HTML.
func NewDocument(body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{raw: string(body), doc: doc}, nil
}

// Raw returns the unparsed page body.
func (d *Document) Raw() string {
	return d.raw
}

// Text returns the visible body text with non-breaking spaces normalised.
// Element boundaries become line breaks so text from adjacent elements never
// runs together; script and style content is left out.
func (d *Document) Text() string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, child *goquery.Selection) {
			switch goquery.NodeName(child) {
			case "#text":
				b.WriteString(child.Text())
			case "#comment", "script", "style":
			default:
				b.WriteByte('\n')
				walk(child)
				b.WriteByte('\n')
			}
		})
	}
	walk(d.doc.Find("body"))
	return normalizeSpace(b.String())
}

// Title returns the trimmed <title> text, falling back to the first <h1>.
func (d *Document) Title() string {
	if title := strings.TrimSpace(normalizeSpace(d.doc.Find("title").First().Text())); title != "" {
		return title
	}
	return strings.TrimSpace(normalizeSpace(d.doc.Find("h1").First().Text()))
}

// Rows returns every table row in document order.
func (d *Document) Rows() *goquery.Selection {
	return d.doc.Find("tr")
}

// LinkTargets returns the href of every anchor in document order.
func (d *Document) LinkTargets() []string {
	var hrefs []string
	d.doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

func normalizeSpace(s string) string {
	return strings.ReplaceAll(s, "\u00a0", " ")
}

// parseCount reads an integer that may carry thousands separators.
func parseCount(text string) (int, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '.', ' ', '\u00a0', '\'':
			return -1
		}
		return r
	}, strings.TrimSpace(text))
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return n, true
}
