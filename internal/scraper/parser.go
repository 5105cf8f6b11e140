// internal/scraper/parser.go
package scraper

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// HTMLParser wraps a parsed page
type HTMLParser struct {
	document *goquery.Document
}

// NewHTMLParser parses HTML content
func NewHTMLParser(html string) (*HTMLParser, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &HTMLParser{document: doc}, nil
}

// Find returns all nodes matching selector
func (hp *HTMLParser) Find(selector string) *goquery.Selection {
	return hp.document.Find(selector)
}

// Text returns the trimmed text of the first match, or ""
func (hp *HTMLParser) Text(selector string) string {
	return strings.TrimSpace(hp.document.Find(selector).First().Text())
}

// Attr returns an attribute of the first match
func (hp *HTMLParser) Attr(selector, attr string) (string, bool) {
	return hp.document.Find(selector).First().Attr(attr)
}

// NormalizeLabel folds a business name for comparison: NFKC, trimmed,
// inner whitespace collapsed. Maps pages mix narrow no-break spaces and
// compatibility forms into names and aria labels.
func NormalizeLabel(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// ListingParser turns a maps results page into candidates
type ListingParser struct {
	selectors Selectors
}

// NewListingParser creates a parser using the given selectors
func NewListingParser(selectors Selectors) *ListingParser {
	return &ListingParser{selectors: selectors.WithDefaults()}
}

// ParseListing returns one candidate per listing entry with a name, in
// document order. Entries without a name are skipped and reported in the
// second return value.
func (lp *ListingParser) ParseListing(html string) ([]Candidate, int, error) {
	if strings.TrimSpace(html) == "" {
		return nil, 0, nil
	}

	parser, err := NewHTMLParser(html)
	if err != nil {
		return nil, 0, err
	}

	var candidates []Candidate
	skipped := 0
	parser.Find(lp.selectors.ListingItem).Each(func(i int, item *goquery.Selection) {
		name := NormalizeLabel(item.Find(lp.selectors.ListingName).First().Text())
		if name == "" {
			skipped++
			return
		}
		candidates = append(candidates, Candidate{
			Name:  name,
			Index: i,
			Item:  item,
		})
	})

	return candidates, skipped, nil
}
