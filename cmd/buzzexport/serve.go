package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/buzzexport/api"
	"github.com/use-agent/buzzexport/panel"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the gradebook in the background and serve it over a local HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "Listen host (overrides BUZZ_HOST)")
	serveCmd.Flags().Int("port", 0, "Listen port (overrides BUZZ_PORT)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── 1. Load configuration and logging ───────────────────────────
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	initLogger(cfg.Log)
	slog.Info("buzzexport starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 2. Open the page source (may launch a browser) ──────────────
	sc, err := openScraper(ctx, cfg)
	if err != nil {
		slog.Error("failed to open source", "error", err)
		return err
	}
	defer func() {
		if err := sc.Close(); err != nil {
			slog.Warn("closing source failed", "error", err)
		}
	}()

	// ── 3. Background readiness poll ────────────────────────────────
	p := panel.New(sc.Scrape)
	go p.Watch(ctx, pollPolicy(cfg))

	// ── 4. Start HTTP server ────────────────────────────────────────
	router := api.NewRouter(ctx, p, cfg, sc.Source().Name(), time.Now())
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// ── 5. Graceful shutdown ────────────────────────────────────────
	select {
	case err := <-errCh:
		slog.Error("HTTP server error", "error", err)
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give in-flight requests 5 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("buzzexport stopped")
	return nil
}
