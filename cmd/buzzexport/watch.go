package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/buzzexport/export"
	"github.com/use-agent/buzzexport/panel"
	"github.com/use-agent/buzzexport/poller"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Wait for the gradebook table, then export it (default)",
	RunE:  runWatch,
}

func init() {
	addExportFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	initLogger(cfg.Log)

	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := openScraper(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sc.Close(); err != nil {
			slog.Warn("closing source failed", "error", err)
		}
	}()

	out := cmd.ErrOrStderr()
	p := panel.New(sc.Scrape, panel.WithNotify(func(s string) { fmt.Fprintln(out, s) }))

	res := p.Watch(ctx, pollPolicy(cfg))
	if res.State != poller.StateSucceeded {
		return &exitError{code: 2, err: fmt.Errorf("gradebook not ready after %d attempts: %s", res.Attempts, res.Outcome.Reason())}
	}

	path, _, err := p.Download(ctx, cfg.Export.OutPath, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Wrote", path)

	if cfg.Export.Copy {
		if _, err := p.Copy(ctx); err != nil {
			return err
		}
	}
	return nil
}
