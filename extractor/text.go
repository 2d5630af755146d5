package extractor

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/use-agent/buzzexport/models"
)

// CleanText collapses every run of whitespace to a single space and trims
// both ends. It is idempotent.
func CleanText(s string) string {
	return strings.Join(strings.FieldsFunc(s, isSpace), " ")
}

// isSpace follows the browser's notion of whitespace: it counts the byte
// order mark but not NEL (U+0085).
func isSpace(r rune) bool {
	if r == '\u0085' {
		return false
	}
	return unicode.IsSpace(r) || r == '\ufeff'
}

var reXOfY = regexp.MustCompile(`(?i)^(\d+) of (\d+)$`)

// ParseXOfY parses tooltip text such as "7 of 10" into an assignment
// breakdown. Anything else, including integers that overflow, yields nil.
func ParseXOfY(text string) *models.Assignments {
	m := reXOfY.FindStringSubmatch(CleanText(text))
	if m == nil {
		return nil
	}
	completed, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	total, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	return models.NewAssignments(completed, total)
}

// parsePercent reads a number such as "93.5%" or "40". The first percent
// sign is dropped. Empty, non-numeric and non-finite values yield nil.
func parsePercent(text string) *float64 {
	s := strings.TrimSpace(strings.Replace(text, "%", "", 1))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// optionalText returns nil for empty text so absent cells serialize as null.
func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
