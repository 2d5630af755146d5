package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const readyBody = `{"ok":true,"scrapedAt":"2026-10-19T08:30:00.000Z","sourceUrl":"u","courses":[]}`

// fakeAPI stands in for a running `buzzexport serve` and records the last
// request line.
func fakeAPI(t *testing.T, routes map[string]func(http.ResponseWriter)) (string, *atomic.Value) {
	t.Helper()
	last := new(atomic.Value)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		line := r.Method + " " + r.URL.RequestURI()
		last.Store(line)
		h, ok := routes[line]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w)
	}))
	t.Cleanup(srv.Close)
	return srv.URL, last
}

func reply(status int, body string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	return mcp.GetTextFromContent(res.Content[0]), res.IsError
}

func TestHandleScrape_JSON(t *testing.T) {
	url, last := fakeAPI(t, map[string]func(http.ResponseWriter){
		"POST /api/v1/scrape": reply(http.StatusOK, readyBody),
	})

	text, isErr := callTool(t, handleScrape(url), nil)

	assert.False(t, isErr)
	assert.Equal(t, readyBody, text)
	assert.Equal(t, "POST /api/v1/scrape", last.Load())
}

func TestHandleScrape_Markdown(t *testing.T) {
	url, last := fakeAPI(t, map[string]func(http.ResponseWriter){
		"GET /api/v1/export?format=markdown": reply(http.StatusOK, "# Gradebook progress"),
	})

	text, isErr := callTool(t, handleScrape(url), map[string]any{"format": "markdown"})

	assert.False(t, isErr)
	assert.Equal(t, "# Gradebook progress", text)
	assert.Equal(t, "GET /api/v1/export?format=markdown", last.Load())
}

func TestHandleScrape_NotReady(t *testing.T) {
	url, _ := fakeAPI(t, map[string]func(http.ResponseWriter){
		"POST /api/v1/scrape": reply(http.StatusServiceUnavailable, `{"ok":false,"reason":"no rows located"}`),
	})

	text, isErr := callTool(t, handleScrape(url), nil)

	assert.True(t, isErr)
	assert.Equal(t, "Not ready: no rows located", text)
}

func TestHandleScrape_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, isErr := callTool(t, handleScrape(url), nil)

	assert.True(t, isErr)
}

func TestHandleStatus(t *testing.T) {
	url, _ := fakeAPI(t, map[string]func(http.ResponseWriter){
		"GET /api/v1/status": reply(http.StatusOK, `{"status":"Ready ✅ Found 4 courses.","state":"succeeded","attempt":1,"max_attempts":60,"last_ready_courses":4,"last_ready_at":"2026-10-19T08:30:00.000Z"}`),
	})

	text, isErr := callTool(t, handleStatus(url), nil)

	assert.False(t, isErr)
	assert.Equal(t, "Status: Ready ✅ Found 4 courses.\nState: succeeded (attempt 1/60)\nLast read: 4 courses at 2026-10-19T08:30:00.000Z", text)
}

func TestHandleStatus_BadBody(t *testing.T) {
	url, _ := fakeAPI(t, map[string]func(http.ResponseWriter){
		"GET /api/v1/status": reply(http.StatusOK, `not json`),
	})

	text, isErr := callTool(t, handleStatus(url), nil)

	assert.True(t, isErr)
	assert.Contains(t, text, "failed to parse response")
}

func TestHandleLast(t *testing.T) {
	url, _ := fakeAPI(t, map[string]func(http.ResponseWriter){
		"GET /api/v1/last": reply(http.StatusOK, readyBody),
	})

	text, isErr := callTool(t, handleLast(url), nil)

	assert.False(t, isErr)
	assert.Equal(t, readyBody, text)
}

func TestHandleLast_NothingYet(t *testing.T) {
	url, _ := fakeAPI(t, map[string]func(http.ResponseWriter){
		"GET /api/v1/last": reply(http.StatusNotFound, `{"success":false,"error":{"code":"NOT_READY","message":"no ready result yet"}}`),
	})

	text, isErr := callTool(t, handleLast(url), nil)

	assert.True(t, isErr)
	assert.Equal(t, "[NOT_READY] no ready result yet", text)
}

func TestDescribeFailure(t *testing.T) {
	assert.Equal(t, "Not ready: no rows located",
		describeFailure([]byte(`{"ok":false,"reason":"no rows located"}`)))
	assert.Equal(t, "[RATE_LIMITED] too many scrapes, please slow down",
		describeFailure([]byte(`{"success":false,"error":{"code":"RATE_LIMITED","message":"too many scrapes, please slow down"}}`)))
	assert.Equal(t, "request failed: oops", describeFailure([]byte("oops")))
}
