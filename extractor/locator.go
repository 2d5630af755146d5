package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Variant describes one known markup flavour of the gradebook table. The
// CDK flavour tags cells with .cdk-column-*, the MDC flavour with
// .mat-column-* and renders rows as .mat-mdc-row.
type Variant struct {
	Name      string
	Row       string
	Course    string
	StartDate string
	EndDate   string
	Score     string
	Progress  string
}

// Variants lists the known flavours in lookup priority order.
var Variants = []Variant{
	{
		Name:      "cdk",
		Row:       "mat-row",
		Course:    ".cdk-column-course a",
		StartDate: ".cdk-column-start .start-date",
		EndDate:   ".cdk-column-end .end-date",
		Score:     ".cdk-column-score .percent",
		Progress:  ".cdk-column-progress mat-progress-bar",
	},
	{
		Name:      "mdc",
		Row:       ".mat-mdc-row",
		Course:    ".mat-column-course a",
		StartDate: ".mat-column-start .start-date",
		EndDate:   ".mat-column-end .end-date",
		Score:     ".mat-column-score .percent",
		Progress:  ".mat-column-progress mat-progress-bar",
	},
}

// locator finds an element by any of several structural descriptors. The
// descriptors are tried in order and the first one with a match wins.
type locator []cascadia.Selector

func newLocator(selectors ...string) locator {
	l := make(locator, 0, len(selectors))
	for _, s := range selectors {
		l = append(l, cascadia.MustCompile(s))
	}
	return l
}

// find returns the first match under scope, or nil when no descriptor matches.
func (l locator) find(scope *goquery.Selection) *goquery.Selection {
	for _, sel := range l {
		if m := scope.FindMatcher(sel); m.Length() > 0 {
			return m.First()
		}
	}
	return nil
}

// rowMatcher matches a row of any variant. A single group selector keeps
// rows in document order and never yields the same element twice.
func rowMatcher(variants []Variant) cascadia.Selector {
	rows := make([]string, 0, len(variants))
	for _, v := range variants {
		rows = append(rows, v.Row)
	}
	return cascadia.MustCompile(strings.Join(rows, ", "))
}

func fieldLocator(variants []Variant, field func(Variant) string) locator {
	selectors := make([]string, 0, len(variants))
	for _, v := range variants {
		if s := field(v); s != "" {
			selectors = append(selectors, s)
		}
	}
	return newLocator(selectors...)
}

// idMatcher matches an element whose id attribute equals the value exactly.
type idMatcher string

func (m idMatcher) Match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "id" {
			return a.Val == string(m)
		}
	}
	return false
}
