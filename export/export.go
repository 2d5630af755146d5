// Package export renders a Ready outcome and delivers it to a file or the
// system clipboard.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/use-agent/buzzexport/models"
)

// DefaultFileName is the download name of the JSON export.
const DefaultFileName = "buzz-gradebook-progress.json"

// clipboardWrite is replaced in tests.
var clipboardWrite = clipboard.WriteAll

// ParseFormat validates a format name. Empty selects JSON.
func ParseFormat(s string) (models.ExportFormat, error) {
	switch models.ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", models.FormatJSON:
		return models.FormatJSON, nil
	case models.FormatMarkdown, "md":
		return models.FormatMarkdown, nil
	}
	return "", models.NewExportError(
		models.ErrCodeInvalidInput,
		fmt.Sprintf("unknown export format %q", s),
		nil,
	)
}

// JSON renders o with two-space indentation. &, < and > are written
// literally.
func JSON(o models.Outcome) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(o); err != nil {
		return nil, models.NewExportError(models.ErrCodeExport, "failed to encode JSON", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Render encodes a Ready outcome in the given format.
func Render(o models.Outcome, format models.ExportFormat) ([]byte, error) {
	if !o.IsReady() {
		return nil, models.NewExportError(models.ErrCodeNotReady, "Not ready: "+string(o.Reason()), nil)
	}
	switch format {
	case models.FormatMarkdown:
		md, err := Markdown(o)
		if err != nil {
			return nil, err
		}
		return []byte(md), nil
	default:
		return JSON(o)
	}
}

// FileName returns the download name for format, derived from name.
// A markdown export swaps the extension to .md.
func FileName(name string, format models.ExportFormat) string {
	if name == "" {
		name = DefaultFileName
	}
	if format != models.FormatMarkdown {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".md"
}

// ContentType returns the MIME type of format.
func ContentType(format models.ExportFormat) string {
	if format == models.FormatMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// WriteFile writes data to path, replacing any existing file.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return models.NewExportError(models.ErrCodeExport, "failed to create "+dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return models.NewExportError(models.ErrCodeExport, "failed to write "+path, err)
	}
	return nil
}

// Copy puts data on the system clipboard.
func Copy(data []byte) error {
	if clipboard.Unsupported {
		return models.NewExportError(models.ErrCodeClipboard, "no clipboard available on this system", nil)
	}
	if err := clipboardWrite(string(data)); err != nil {
		return models.NewExportError(models.ErrCodeClipboard, "clipboard write failed", err)
	}
	return nil
}
