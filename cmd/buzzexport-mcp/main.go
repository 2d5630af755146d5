package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// outcome mirrors the scrape and last responses of the buzzexport API.
type outcome struct {
	OK        bool              `json:"ok"`
	Reason    string            `json:"reason"`
	ScrapedAt string            `json:"scrapedAt"`
	SourceURL string            `json:"sourceUrl"`
	Courses   []json.RawMessage `json:"courses"`
}

// statusResponse mirrors GET /api/v1/status.
type statusResponse struct {
	Status           string `json:"status"`
	State            string `json:"state"`
	Attempt          int    `json:"attempt"`
	MaxAttempts      int    `json:"max_attempts"`
	LastReadyCourses int    `json:"last_ready_courses"`
	LastReadyAt      string `json:"last_ready_at"`
}

// errorResponse mirrors the API error body.
type errorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("BUZZ_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8765"
	}

	s := server.NewMCPServer(
		"buzzexport",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	scrapeTool := mcp.NewTool("scrape_gradebook",
		mcp.WithDescription("Read the course progress table from the open Buzz gradebook page. Returns every course with its dates, score, progress and assignment counts. Fails with the reason when the table has not rendered yet."),
		mcp.WithString("format",
			mcp.Description("Output format: 'json' (default) or 'markdown' (a table)"),
			mcp.Enum("json", "markdown"),
		),
	)
	s.AddTool(scrapeTool, handleScrape(apiURL))

	statusTool := mcp.NewTool("gradebook_status",
		mcp.WithDescription("Report whether the gradebook table has been detected, the current status line and how many courses the last successful read found."),
	)
	s.AddTool(statusTool, handleStatus(apiURL))

	lastTool := mcp.NewTool("last_gradebook",
		mcp.WithDescription("Return the most recent successful gradebook read without touching the page."),
	)
	s.AddTool(lastTool, handleLast(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends a request to the buzzexport API and returns status and body.
func apiDo(ctx context.Context, client *http.Client, method, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func handleScrape(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		format := request.GetString("format", "json")

		method, url := http.MethodPost, apiURL+"/api/v1/scrape"
		if format == "markdown" {
			method, url = http.MethodGet, apiURL+"/api/v1/export?format=markdown"
		}

		status, body, err := apiDo(ctx, client, method, url)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status == http.StatusOK {
			return mcp.NewToolResultText(string(body)), nil
		}
		return mcp.NewToolResultError(describeFailure(body)), nil
	}
}

func handleStatus(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, body, err := apiDo(ctx, client, http.MethodGet, apiURL+"/api/v1/status")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(describeFailure(body)), nil
		}

		var s statusResponse
		if err := json.Unmarshal(body, &s); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		result := fmt.Sprintf("Status: %s\nState: %s (attempt %d/%d)", s.Status, s.State, s.Attempt, s.MaxAttempts)
		if s.LastReadyAt != "" {
			result += fmt.Sprintf("\nLast read: %d courses at %s", s.LastReadyCourses, s.LastReadyAt)
		}
		return mcp.NewToolResultText(result), nil
	}
}

func handleLast(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, body, err := apiDo(ctx, client, http.MethodGet, apiURL+"/api/v1/last")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(describeFailure(body)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

// describeFailure turns a NotReady outcome or an API error body into a
// single line for the tool result.
func describeFailure(body []byte) string {
	var o outcome
	if err := json.Unmarshal(body, &o); err == nil && o.Reason != "" {
		return "Not ready: " + o.Reason
	}
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != nil {
		return fmt.Sprintf("[%s] %s", e.Error.Code, e.Error.Message)
	}
	return "request failed: " + string(body)
}
