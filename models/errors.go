package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeTimeout      = "SNAPSHOT_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeClipboard    = "CLIPBOARD_BLOCKED"
	ErrCodeExport       = "EXPORT_FAILED"
	ErrCodeNotReady     = "NOT_READY"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExportError reports why a gradebook export could not be produced or
// delivered. Polling never returns one; the extractor reports a missing
// table as a NotReady outcome instead. Code is one of the ErrCode
// constants and selects the HTTP status.
type ExportError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewExportError creates a new ExportError.
func NewExportError(code, message string, err error) *ExportError {
	return &ExportError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ExportError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
