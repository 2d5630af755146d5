package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/buzzexport/config"
	"github.com/use-agent/buzzexport/models"
	"github.com/use-agent/buzzexport/panel"
)

type switchable struct {
	outcome models.Outcome
}

func (s *switchable) scrape(context.Context) models.Outcome { return s.outcome }

func newTestRouter(t *testing.T, o models.Outcome) (http.Handler, *switchable, *panel.Panel) {
	t.Helper()
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000

	src := &switchable{outcome: o}
	p := panel.New(src.scrape)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRouter(ctx, p, cfg, "fake", time.Now()), src, p
}

func readyOutcome() models.Outcome {
	score := 88.0
	return models.Ready(time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC), config.DefaultURL,
		[]models.CourseRecord{{Course: "Math 101", ScorePercent: &score}})
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestScrape_Ready(t *testing.T) {
	r, _, _ := newTestRouter(t, readyOutcome())

	w := do(r, http.MethodPost, "/api/v1/scrape")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, config.DefaultURL, body["sourceUrl"])
	assert.Equal(t, "2026-10-19T08:30:00.000Z", body["scrapedAt"])
	assert.Len(t, body["courses"], 1)
}

func TestScrape_NotReady(t *testing.T) {
	r, _, _ := newTestRouter(t, models.NotReady(models.ReasonNoRows))

	w := do(r, http.MethodPost, "/api/v1/scrape")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"ok":false,"reason":"no rows located"}`, w.Body.String())
}

func TestExport_JSONAttachment(t *testing.T) {
	r, _, _ := newTestRouter(t, readyOutcome())

	w := do(r, http.MethodGet, "/api/v1/export")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="buzz-gradebook-progress.json"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "{\n  \"ok\": true"))
}

func TestExport_Markdown(t *testing.T) {
	r, _, _ := newTestRouter(t, readyOutcome())

	w := do(r, http.MethodGet, "/api/v1/export?format=markdown")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="buzz-gradebook-progress.md"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "Math 101")
}

func TestExport_MarkdownShortName(t *testing.T) {
	r, _, _ := newTestRouter(t, readyOutcome())

	w := do(r, http.MethodGet, "/api/v1/export?format=md")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="buzz-gradebook-progress.md"`, w.Header().Get("Content-Disposition"))
}

func TestExport_BadFormat(t *testing.T) {
	r, _, _ := newTestRouter(t, readyOutcome())

	w := do(r, http.MethodGet, "/api/v1/export?format=csv")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeInvalidInput)
}

func TestExport_NotReady(t *testing.T) {
	r, _, _ := newTestRouter(t, models.NotReady(models.ReasonWrongPage))

	w := do(r, http.MethodGet, "/api/v1/export")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
}

func TestLast(t *testing.T) {
	r, src, _ := newTestRouter(t, models.NotReady(models.ReasonNoRows))

	w := do(r, http.MethodGet, "/api/v1/last")
	assert.Equal(t, http.StatusNotFound, w.Code)

	src.outcome = readyOutcome()
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/scrape").Code)

	// The page regresses, but the retained result is still served.
	src.outcome = models.NotReady(models.ReasonNoRows)
	w = do(r, http.MethodGet, "/api/v1/last")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Math 101")
}

func TestHealthAndStatus(t *testing.T) {
	r, _, p := newTestRouter(t, readyOutcome())

	w := do(r, http.MethodGet, "/api/v1/health")
	require.Equal(t, http.StatusOK, w.Code)
	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "waiting", health.Status)
	assert.Equal(t, "fake", health.Source)

	_, err := p.Scrape(context.Background())
	require.NoError(t, err)

	w = do(r, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, w.Code)
	var status models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, panel.StatusWaiting, status.Status)
	assert.Equal(t, "polling", status.State)
	assert.Equal(t, 1, status.LastReadyCourses)
	assert.Equal(t, "2026-10-19T08:30:00.000Z", status.LastReadyAt)

	w = do(r, http.MethodGet, "/api/v1/health")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
}

func TestRateLimit(t *testing.T) {
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.RateLimit.RequestsPerSecond = 0.001
	cfg.RateLimit.Burst = 1
	src := &switchable{outcome: readyOutcome()}
	r := NewRouter(t.Context(), panel.New(src.scrape), cfg, "fake", time.Now())

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/scrape").Code)
	w := do(r, http.MethodPost, "/api/v1/scrape")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeRateLimited)

	// Probes are not limited.
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/health").Code)
}
