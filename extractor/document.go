package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Document is a parsed snapshot of the gradebook page together with the
// location it was read from.
type Document struct {
	dom *goquery.Document
	url string
}

// NewDocument parses rawHTML. sourceURL is reported verbatim in Ready outcomes.
func NewDocument(rawHTML, sourceURL string) (*Document, error) {
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	return &Document{dom: dom, url: sourceURL}, nil
}

// URL returns the page location the document was captured at.
func (d *Document) URL() string { return d.url }

// elementByID mirrors document.getElementById: the first element in tree
// order whose id attribute equals id exactly.
func (d *Document) elementByID(id string) *goquery.Selection {
	if id == "" || len(d.dom.Nodes) == 0 {
		return nil
	}
	node := cascadia.Query(d.dom.Nodes[0], idMatcher(id))
	if node == nil {
		return nil
	}
	return d.dom.FindNodes(node)
}
