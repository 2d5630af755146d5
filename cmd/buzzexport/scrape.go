package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/use-agent/buzzexport/export"
	"github.com/use-agent/buzzexport/models"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape once and print the result to stdout",
	Long: "scrape runs a single extraction attempt without waiting and prints the outcome. " +
		"It exits with status 2 when the table is not ready.",
	Example: "  buzzexport scrape --file saved-gradebook.html",
	RunE:    runScrape,
}

func init() {
	scrapeCmd.Flags().String("file", "", "Saved HTML snapshot of the gradebook page")
	scrapeCmd.Flags().String("format", "", "json or markdown (overrides BUZZ_FORMAT)")
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	initLogger(cfg.Log)

	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}

	sc, err := openScraper(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sc.Close(); err != nil {
			slog.Warn("closing source failed", "error", err)
		}
	}()

	o := sc.Scrape(cmd.Context())
	if !o.IsReady() {
		data, err := export.JSON(o)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return &exitError{code: 2, err: errors.New("not ready: " + string(o.Reason()))}
	}

	data, err := export.Render(o, format)
	if err != nil {
		return err
	}
	if format == models.FormatJSON {
		data = append(data, '\n')
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
