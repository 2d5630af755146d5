package models

// ExportFormat selects how a Ready outcome is rendered for export.
type ExportFormat string

const (
	FormatJSON     ExportFormat = "json"
	FormatMarkdown ExportFormat = "markdown"
)

// ExportQuery is bound from the query string of GET /api/v1/export.
type ExportQuery struct {
	// Format is "json" (default), "markdown" or "md". Validated by
	// export.ParseFormat.
	Format string `form:"format"`
}

// Defaults applies default values to unset fields.
func (q *ExportQuery) Defaults() {
	if q.Format == "" {
		q.Format = string(FormatJSON)
	}
}
