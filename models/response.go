package models

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "waiting"
	Uptime  string `json:"uptime"`
	Source  string `json:"source"`
	Version string `json:"version"`
}

// StatusResponse is the response for GET /api/v1/status.
type StatusResponse struct {
	// Status is the human-readable panel line, e.g. "Ready ✅ Found 6 courses."
	Status string `json:"status"`

	// State is the poller state: "polling", "succeeded", "exhausted" or "canceled".
	State string `json:"state"`

	// Attempt is the last reported attempt number (1-based).
	Attempt int `json:"attempt"`

	// MaxAttempts is the poll budget.
	MaxAttempts int `json:"max_attempts"`

	// LastReadyCourses is the course count of the retained Ready outcome, 0 if none.
	LastReadyCourses int `json:"last_ready_courses"`

	// LastReadyAt is the scrapedAt of the retained Ready outcome, empty if none.
	LastReadyAt string `json:"last_ready_at,omitempty"`
}

// ErrorResponse wraps an ErrorDetail for failures that are not outcomes
// (rate limiting, invalid input, clipboard or file errors).
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
