package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/use-agent/buzzexport/config"
	"github.com/use-agent/buzzexport/extractor"
	"github.com/use-agent/buzzexport/poller"
	"github.com/use-agent/buzzexport/scraper"
)

var rootCmd = &cobra.Command{
	Use:   "buzzexport",
	Short: "Export course progress from the Buzz gradebook",
	Long: "buzzexport reads the gradebook page you are already logged into, waits for the " +
		"course table to render and exports every course's dates, score, progress and " +
		"assignment counts as JSON.",
	SilenceUsage: true,
	RunE:         runWatch,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "YAML config file (overrides BUZZ_CONFIG)")
	f.String("env-file", ".env", "Dotenv file loaded before reading BUZZ_* variables")
	f.String("url", "", "Gradebook URL to open (overrides BUZZ_URL)")
	f.String("page-pattern", "", "Regular expression the page URL must match (overrides BUZZ_PAGE_PATTERN)")
	f.String("html-file", "", "Read a saved HTML snapshot instead of a browser (overrides BUZZ_HTML_FILE)")
	f.String("cdp-url", "", "Attach to a running Chrome over CDP (overrides BUZZ_CDP_URL)")
	f.Bool("headless", false, "Run the launched browser headless (overrides BUZZ_HEADLESS)")
	f.String("browser-bin", "", "Chromium binary path (overrides BUZZ_BROWSER_BIN)")
	f.String("user-data-dir", "", "Browser profile directory (overrides BUZZ_USER_DATA_DIR)")
	f.Bool("stealth", false, "Mask automation hints in the opened tab (overrides BUZZ_STEALTH)")
	f.Int("max-attempts", 0, "Readiness attempts before giving up (overrides BUZZ_MAX_ATTEMPTS)")
	f.Duration("interval", 0, "Wait between readiness attempts (overrides BUZZ_POLL_INTERVAL)")
	f.String("log-level", "", "debug, info, warn or error (overrides BUZZ_LOG_LEVEL)")
	f.String("log-format", "", "text or json (overrides BUZZ_LOG_FORMAT)")

	addExportFlags(rootCmd)

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().String("out", "", "Output file (overrides BUZZ_OUT)")
	cmd.Flags().String("format", "", "json or markdown (overrides BUZZ_FORMAT)")
	cmd.Flags().Bool("copy", false, "Also copy the JSON to the clipboard (overrides BUZZ_COPY)")
}

// loadConfig layers the configuration: defaults, then the config file, then
// BUZZ_* variables (including those from the env file), then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	f := cmd.Flags()

	envFile, _ := f.GetString("env-file")
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	path := os.Getenv("BUZZ_CONFIG")
	overrideString(f, "config", &path)
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	overrideString(f, "url", &cfg.Source.URL)
	overrideString(f, "page-pattern", &cfg.Source.PagePattern)
	overrideString(f, "html-file", &cfg.Source.HTMLFile)
	overrideString(f, "file", &cfg.Source.HTMLFile)
	overrideString(f, "cdp-url", &cfg.Browser.CDPURL)
	overrideBool(f, "headless", &cfg.Browser.Headless)
	overrideString(f, "browser-bin", &cfg.Browser.BrowserBin)
	overrideString(f, "user-data-dir", &cfg.Browser.UserDataDir)
	overrideBool(f, "stealth", &cfg.Browser.Stealth)
	overrideInt(f, "max-attempts", &cfg.Poll.MaxAttempts)
	overrideDuration(f, "interval", &cfg.Poll.Interval)
	overrideString(f, "log-level", &cfg.Log.Level)
	overrideString(f, "log-format", &cfg.Log.Format)
	overrideString(f, "out", &cfg.Export.OutPath)
	overrideString(f, "format", &cfg.Export.Format)
	overrideBool(f, "copy", &cfg.Export.Copy)
	overrideString(f, "host", &cfg.Server.Host)
	overrideInt(f, "port", &cfg.Server.Port)

	return cfg, nil
}

func overrideString(f *pflag.FlagSet, name string, dst *string) {
	if f.Lookup(name) != nil && f.Changed(name) {
		*dst, _ = f.GetString(name)
	}
}

func overrideBool(f *pflag.FlagSet, name string, dst *bool) {
	if f.Lookup(name) != nil && f.Changed(name) {
		*dst, _ = f.GetBool(name)
	}
}

func overrideInt(f *pflag.FlagSet, name string, dst *int) {
	if f.Lookup(name) != nil && f.Changed(name) {
		*dst, _ = f.GetInt(name)
	}
}

func overrideDuration(f *pflag.FlagSet, name string, dst *time.Duration) {
	if f.Lookup(name) != nil && f.Changed(name) {
		*dst, _ = f.GetDuration(name)
	}
}

func pollPolicy(cfg *config.Config) poller.Policy {
	return poller.Policy{MaxAttempts: cfg.Poll.MaxAttempts, Interval: cfg.Poll.Interval}
}

// openScraper builds the snapshot source the configuration asks for: a
// saved HTML file when one is set, a browser otherwise.
func openScraper(ctx context.Context, cfg *config.Config) (*scraper.Scraper, error) {
	pattern, err := scraper.CompilePattern(cfg.Source.PagePattern)
	if err != nil {
		return nil, err
	}

	var src scraper.Source
	if cfg.Source.HTMLFile != "" {
		src = scraper.NewFileSource(cfg.Source.HTMLFile, cfg.Source.URL)
	} else {
		src, err = scraper.NewBrowserSource(ctx, cfg.Browser, cfg.Source.URL, pattern)
		if err != nil {
			return nil, err
		}
	}
	return scraper.New(src, extractor.New(), pattern), nil
}
