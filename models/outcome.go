package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Reason explains why a scrape attempt did not produce a Ready outcome.
type Reason string

const (
	ReasonNoRows    Reason = "no rows located"
	ReasonNoCourses Reason = "rows found but no course names parsed"

	// Reasons produced outside the extractor, by the page sources.
	ReasonWrongPage           Reason = "page is not the gradebook"
	ReasonSnapshotUnavailable Reason = "page snapshot unavailable"
)

// TimestampLayout matches JavaScript's Date.toISOString output.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Outcome is the tagged result of one extraction attempt: either Ready with
// the scraped courses, or NotReady with a reason. The zero value is NotReady
// with an empty reason.
//
// Outcome is immutable: accessors return copies.
type Outcome struct {
	ready     bool
	reason    Reason
	scrapedAt time.Time
	sourceURL string
	courses   []CourseRecord
}

// Ready builds a successful outcome. The record slice is copied.
func Ready(scrapedAt time.Time, sourceURL string, courses []CourseRecord) Outcome {
	return Outcome{
		ready:     true,
		scrapedAt: scrapedAt.UTC(),
		sourceURL: sourceURL,
		courses:   cloneRecords(courses),
	}
}

// NotReady builds a failed outcome carrying reason.
func NotReady(reason Reason) Outcome {
	return Outcome{reason: reason}
}

// IsReady reports whether the outcome carries courses.
func (o Outcome) IsReady() bool { return o.ready }

func (o Outcome) Reason() Reason { return o.reason }

func (o Outcome) ScrapedAt() time.Time { return o.scrapedAt }

func (o Outcome) SourceURL() string { return o.sourceURL }

func (o Outcome) CourseCount() int { return len(o.courses) }

// Courses returns a copy of the records in document order.
func (o Outcome) Courses() []CourseRecord { return cloneRecords(o.courses) }

func (o Outcome) String() string {
	if o.ready {
		return fmt.Sprintf("ready: %d courses from %s", len(o.courses), o.sourceURL)
	}
	return "not ready: " + string(o.reason)
}

type readyJSON struct {
	OK        bool           `json:"ok"`
	ScrapedAt string         `json:"scrapedAt"`
	SourceURL string         `json:"sourceUrl"`
	Courses   []CourseRecord `json:"courses"`
}

type notReadyJSON struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason"`
}

type outcomeJSON struct {
	OK        bool           `json:"ok"`
	Reason    Reason         `json:"reason"`
	ScrapedAt string         `json:"scrapedAt"`
	SourceURL string         `json:"sourceUrl"`
	Courses   []CourseRecord `json:"courses"`
}

// MarshalJSON writes the canonical export shape.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if !o.ready {
		return marshalLiteral(notReadyJSON{OK: false, Reason: o.reason})
	}
	courses := o.courses
	if courses == nil {
		courses = []CourseRecord{}
	}
	return marshalLiteral(readyJSON{
		OK:        true,
		ScrapedAt: o.scrapedAt.UTC().Format(TimestampLayout),
		SourceURL: o.sourceURL,
		Courses:   courses,
	})
}

// marshalLiteral encodes v without escaping &, < and > so course names
// read the same as on the page.
func marshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON accepts both canonical shapes.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var raw outcomeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.OK {
		*o = NotReady(raw.Reason)
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.ScrapedAt)
	if err != nil {
		return fmt.Errorf("outcome: invalid scrapedAt %q: %w", raw.ScrapedAt, err)
	}
	*o = Ready(ts, raw.SourceURL, raw.Courses)
	return nil
}
