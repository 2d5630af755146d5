package scraper

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/use-agent/buzzexport/models"
	"golang.org/x/net/html"
)

// Source produces page snapshots for the extractor. Taking a snapshot must
// never change the page.
type Source interface {
	// Name identifies the source in logs and the health endpoint.
	Name() string

	// Snapshot returns the current state of the page.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Close releases what the source opened.
	Close() error
}

// FileSource serves a saved copy of the page. The file is read again on
// every snapshot, so it can be replaced while a poll is running.
type FileSource struct {
	path string
	url  string
}

// NewFileSource returns a source backed by the HTML file at path. When
// pageURL is empty the snapshot URL is the file:// URL of path.
func NewFileSource(path, pageURL string) *FileSource {
	if pageURL == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		pageURL = "file://" + filepath.ToSlash(abs)
	}
	return &FileSource{path: path, url: pageURL}
}

// Name implements Source.
func (f *FileSource) Name() string { return "file" }

// Snapshot implements Source.
func (f *FileSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, categorizeError(err, "snapshot canceled")
	}
	body, err := os.ReadFile(f.path)
	if err != nil {
		code := models.ErrCodeInternal
		if errors.Is(err, fs.ErrNotExist) {
			code = models.ErrCodeInvalidInput
		}
		return nil, models.NewExportError(code, "failed to read "+f.path, err)
	}
	return &Snapshot{
		HTML:  string(body),
		URL:   f.url,
		Title: extractTitle(body),
	}, nil
}

// Close implements Source.
func (f *FileSource) Close() error { return nil }

// extractTitle extracts the <title> content from raw HTML bytes.
func extractTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}
