package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/buzzexport/models"
)

func sampleOutcome() models.Outcome {
	start := "Aug 12, 2026"
	score := 93.5
	return models.Ready(
		time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC),
		"https://epicschools.agilixbuzz.com/student/gradebook/all",
		[]models.CourseRecord{
			{Course: "Algebra I", StartDate: &start, ScorePercent: &score, Assignments: models.NewAssignments(7, 10)},
			{Course: "Biology"},
		},
	)
}

func TestJSON_TwoSpaceIndent(t *testing.T) {
	data, err := JSON(sampleOutcome())
	require.NoError(t, err)

	s := string(data)
	assert.True(t, strings.HasPrefix(s, "{\n  \"ok\": true,"), s)
	assert.Contains(t, s, "\n    {\n      \"course\": \"Algebra I\",")
	assert.Contains(t, s, `"endDate": null`)

	var back map[string]any
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "2026-10-19T08:30:00.000Z", back["scrapedAt"])
}

func TestJSON_KeepsHTMLCharactersLiteral(t *testing.T) {
	o := models.Ready(time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC), "https://x.test/?a=1&b=2",
		[]models.CourseRecord{{Course: "AP Lang & Comp <B>"}})

	data, err := JSON(o)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"course": "AP Lang & Comp <B>"`)
	assert.Contains(t, s, `"sourceUrl": "https://x.test/?a=1&b=2"`)
	assert.NotContains(t, s, `\u0026`)
	assert.False(t, strings.HasSuffix(s, "\n"))
}

func TestRender_NotReady(t *testing.T) {
	_, err := Render(models.NotReady(models.ReasonNoRows), models.FormatJSON)
	var xerr *models.ExportError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, models.ErrCodeNotReady, xerr.Code)
	assert.Equal(t, "Not ready: no rows located", xerr.Message)
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(sampleOutcome())
	require.NoError(t, err)

	assert.Contains(t, md, "# Gradebook progress")
	assert.Contains(t, md, "Algebra I")
	assert.Contains(t, md, "93.5")
	assert.Contains(t, md, "Biology")

	var tableRows int
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "|") {
			tableRows++
		}
	}
	// header, separator, two courses
	assert.Equal(t, 4, tableRows, md)
}

func TestRender_Markdown(t *testing.T) {
	data, err := Render(sampleOutcome(), models.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Algebra I")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]models.ExportFormat{
		"":         models.FormatJSON,
		"json":     models.FormatJSON,
		"JSON":     models.FormatJSON,
		"markdown": models.FormatMarkdown,
		"md":       models.FormatMarkdown,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, DefaultFileName, FileName("", models.FormatJSON))
	assert.Equal(t, "buzz-gradebook-progress.md", FileName("", models.FormatMarkdown))
	assert.Equal(t, "out/grades.md", FileName("out/grades.json", models.FormatMarkdown))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	require.NoError(t, WriteFile(path, []byte("{}")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))
}

func TestCopy(t *testing.T) {
	var copied string
	orig := clipboardWrite
	t.Cleanup(func() { clipboardWrite = orig })

	clipboardWrite = func(s string) error { copied = s; return nil }
	if err := Copy([]byte("payload")); err != nil {
		// Headless CI machines report no clipboard at all.
		var xerr *models.ExportError
		require.ErrorAs(t, err, &xerr)
		assert.Equal(t, models.ErrCodeClipboard, xerr.Code)
		t.Skip("clipboard unsupported here")
	}
	assert.Equal(t, "payload", copied)

	clipboardWrite = func(string) error { return errors.New("denied") }
	err := Copy([]byte("payload"))
	var xerr *models.ExportError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, models.ErrCodeClipboard, xerr.Code)
}
