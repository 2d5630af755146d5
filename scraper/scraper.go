package scraper

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/use-agent/buzzexport/extractor"
	"github.com/use-agent/buzzexport/models"
)

// Scraper runs one extraction attempt against the current state of a
// Source. Its Scrape method has the shape the readiness poller expects.
// It is safe for concurrent use if the Source is.
type Scraper struct {
	src     Source
	ex      *extractor.Extractor
	pattern *regexp.Regexp
}

// CompilePattern compiles the page guard. An empty pattern disables it.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, models.NewExportError(
			models.ErrCodeInvalidInput,
			"invalid page pattern",
			err,
		)
	}
	return re, nil
}

// New returns a Scraper. Snapshots whose URL does not match pattern are
// reported as not ready; a nil pattern accepts every page.
func New(src Source, ex *extractor.Extractor, pattern *regexp.Regexp) *Scraper {
	if ex == nil {
		ex = extractor.New()
	}
	return &Scraper{src: src, ex: ex, pattern: pattern}
}

// Scrape takes a fresh snapshot and extracts it. Failures to read the page
// are not errors: they leave the table not ready and the next attempt
// tries again.
func (s *Scraper) Scrape(ctx context.Context) models.Outcome {
	snap, err := s.src.Snapshot(ctx)
	if err != nil {
		slog.Debug("snapshot failed", "source", s.src.Name(), "error", err)
		return models.NotReady(models.ReasonSnapshotUnavailable)
	}
	if s.pattern != nil && !s.pattern.MatchString(snap.URL) {
		slog.Debug("page guard rejected snapshot", "url", snap.URL)
		return models.NotReady(models.ReasonWrongPage)
	}
	return s.ex.ScrapeHTML(snap.HTML, snap.URL)
}

// Source returns the underlying snapshot source.
func (s *Scraper) Source() Source { return s.src }

// Close closes the underlying source.
func (s *Scraper) Close() error { return s.src.Close() }
