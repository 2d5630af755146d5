package extractor

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/buzzexport/models"
)

// Extractor maps the gradebook table of a Document to course records.
//
// Scrape is a pure function of the document: it never mutates the page and
// keeps no state between calls, so it is safe for concurrent use.
type Extractor struct {
	now func() time.Time

	rows      cascadia.Selector
	course    locator
	startDate locator
	endDate   locator
	score     locator
	progress  locator
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the clock used for scrapedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithVariants replaces the known markup variants.
func WithVariants(variants []Variant) Option {
	return func(e *Extractor) { e.compile(variants) }
}

// New returns an Extractor for the known table variants.
func New(opts ...Option) *Extractor {
	e := &Extractor{now: time.Now}
	e.compile(Variants)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) compile(variants []Variant) {
	e.rows = rowMatcher(variants)
	e.course = fieldLocator(variants, func(v Variant) string { return v.Course })
	e.startDate = fieldLocator(variants, func(v Variant) string { return v.StartDate })
	e.endDate = fieldLocator(variants, func(v Variant) string { return v.EndDate })
	e.score = fieldLocator(variants, func(v Variant) string { return v.Score })
	e.progress = fieldLocator(variants, func(v Variant) string { return v.Progress })
}

// Scrape runs one extraction attempt against doc.
//
// Rows without a course name are skipped. Every other field degrades to
// absent on its own, so a half-rendered row still yields a record.
func (e *Extractor) Scrape(doc *Document) models.Outcome {
	rows := doc.dom.FindMatcher(e.rows)
	if rows.Length() == 0 {
		return models.NotReady(models.ReasonNoRows)
	}

	courses := make([]models.CourseRecord, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		if rec, ok := e.record(doc, row); ok {
			courses = append(courses, rec)
		}
	})

	if len(courses) == 0 {
		return models.NotReady(models.ReasonNoCourses)
	}
	return models.Ready(e.now(), doc.URL(), courses)
}

// ScrapeHTML parses rawHTML and scrapes it. A document that cannot be
// parsed has no rows.
func (e *Extractor) ScrapeHTML(rawHTML, sourceURL string) models.Outcome {
	doc, err := NewDocument(rawHTML, sourceURL)
	if err != nil {
		return models.NotReady(models.ReasonNoRows)
	}
	return e.Scrape(doc)
}

func (e *Extractor) record(doc *Document, row *goquery.Selection) (models.CourseRecord, bool) {
	course := textOf(e.course.find(row))
	if course == "" {
		return models.CourseRecord{}, false
	}

	rec := models.CourseRecord{
		Course:       course,
		StartDate:    optionalText(textOf(e.startDate.find(row))),
		EndDate:      optionalText(textOf(e.endDate.find(row))),
		ScorePercent: parsePercent(textOf(e.score.find(row))),
	}

	if pb := e.progress.find(row); pb != nil {
		if v, ok := pb.Attr("aria-valuenow"); ok {
			rec.ProgressPercent = parsePercent(v)
		}
		if ref, ok := pb.Attr("aria-describedby"); ok {
			if tip := tooltipText(doc, ref); tip != "" {
				rec.Assignments = ParseXOfY(tip)
			}
		}
	}
	return rec, true
}

// tooltipText resolves the id reference of a progress bar. The whole
// attribute value is tried first, then each space-separated id in turn,
// since aria-describedby may list several ids.
func tooltipText(doc *Document, ref string) string {
	if el := doc.elementByID(ref); el != nil {
		return CleanText(el.Text())
	}
	for _, id := range strings.Fields(ref) {
		if id == ref {
			continue
		}
		if el := doc.elementByID(id); el != nil {
			if text := CleanText(el.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

func textOf(s *goquery.Selection) string {
	if s == nil {
		return ""
	}
	return CleanText(s.Text())
}
