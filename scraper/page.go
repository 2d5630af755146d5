package scraper

import (
	"context"
	"errors"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/buzzexport/models"
	"github.com/ysmood/gson"
)

// Snapshot implements Source. It serializes the live DOM and reads the
// location; nothing is clicked, scrolled or injected.
func (s *BrowserSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.SnapshotTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SnapshotTimeout)
		defer cancel()
	}
	p := s.page.Context(ctx)

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to read page HTML")
	}

	return &Snapshot{
		HTML:  rawHTML,
		URL:   evalStringOrEmpty(p, `() => window.location.href`),
		Title: evalStringOrEmpty(p, `() => document.title`),
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ExportErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ExportError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewExportError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewExportError(models.ErrCodeTimeout, "snapshot canceled", err)
	default:
		return models.NewExportError(models.ErrCodeNavigation, msg, err)
	}
}
