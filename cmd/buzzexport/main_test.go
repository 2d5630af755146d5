package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/buzzexport/config"
)

const savedPage = `<html><body>
<mat-row>
  <mat-cell class="cdk-column-course"><a>Spanish II</a></mat-cell>
  <mat-cell class="cdk-column-score"><span class="percent">91%</span></mat-cell>
</mat-row>
</body></html>`

func writePage(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gradebook.html")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScrapeCommand_Ready(t *testing.T) {
	out, err := execute(t, "scrape", "--file", writePage(t, savedPage), "--log-level", "error")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, config.DefaultURL, body["sourceUrl"])
	courses := body["courses"].([]any)
	require.Len(t, courses, 1)
	assert.Equal(t, "Spanish II", courses[0].(map[string]any)["course"])
}

func TestScrapeCommand_NotReadyExitsTwo(t *testing.T) {
	out, err := execute(t, "scrape", "--file", writePage(t, "<p>Loading…</p>"), "--log-level", "error")

	var ee *exitError
	require.True(t, errors.As(err, &ee), "err = %v", err)
	assert.Equal(t, 2, ee.code)
	assert.JSONEq(t, `{"ok":false,"reason":"no rows located"}`, out)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("BUZZ_MAX_ATTEMPTS", "10")
	t.Setenv("BUZZ_OUT", "env.json")

	require.NoError(t, watchCmd.ParseFlags([]string{"--max-attempts", "3", "--interval", "20ms"}))
	t.Cleanup(func() {
		_ = watchCmd.Flags().Set("max-attempts", "0")
		_ = watchCmd.Flags().Set("interval", "0s")
	})

	cfg, err := loadConfig(watchCmd)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Poll.MaxAttempts)
	assert.Equal(t, 20*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, "env.json", cfg.Export.OutPath, "unset flags keep the env value")
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buzz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export:\n  out: from-file.json\n"), 0o644))
	t.Setenv("BUZZ_CONFIG", path)

	cfg, err := loadConfig(versionCmd)
	require.NoError(t, err)
	assert.Equal(t, "from-file.json", cfg.Export.OutPath)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "buzzexport")
}
