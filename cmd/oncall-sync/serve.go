package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"oncall-sync/internal/app"
)

type serveOptions struct {
	*rootOptions
	addr  string
	every time.Duration
}

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an HTTP trigger for syncs",
		Long: `Start an HTTP server exposing:

  POST /sync?since=...&until=...   run one sync (409 while another is running)
  GET  /healthz                    liveness
  GET  /metrics                    Prometheus metrics

With --every, a sync over the default window also runs periodically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().DurationVar(&opts.every, "every", 0, "run a sync periodically at this interval (0 disables)")
	return cmd
}

func serve(cmd *cobra.Command, opts *serveOptions) error {
	log := slog.Default()
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.HTTP.Addr = opts.addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	srv := application.HTTPServer(cfg.HTTP.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var tick <-chan time.Time
	if opts.every > 0 {
		ticker := time.NewTicker(opts.every)
		defer ticker.Stop()
		tick = ticker.C
		log.Info("starting periodic sync", slog.Duration("every", opts.every))
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			// A sync outliving the timeout is awaited by application.Close.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		case <-tick:
			periodicSync(ctx, log, application)
		}
	}
}

// periodicSync logs failures instead of returning them; the next tick retries.
func periodicSync(ctx context.Context, log *slog.Logger, application *app.App) {
	window, err := application.Window("", "")
	if err != nil {
		log.Error("periodic sync failed", slog.String("error", err.Error()))
		return
	}
	if _, err := application.RunOnce(ctx, window); err != nil {
		log.Error("periodic sync failed", slog.String("error", err.Error()))
	}
}
