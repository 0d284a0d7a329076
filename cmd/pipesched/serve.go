package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/pipesched/internal/api"
	"github.com/gyaneshwarpardhi/pipesched/internal/config"
	"github.com/gyaneshwarpardhi/pipesched/internal/engine"
)

func serveCmd() *cobra.Command {
	var (
		flags runFlags
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the optimize API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			override, err := flags.override(cmd)
			if err != nil {
				return err
			}
			loader, err := config.NewLoader(flagConfig, override)
			if err != nil {
				return err
			}
			cfg := loader.Config()
			if err := config.ValidateServer(cfg); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			eng := engine.New(ctx, cfg.Engine, cfg.Output)

			loader.OnChange(func(c *config.RunConfig) {
				if err := config.ValidateServer(c); err != nil {
					slog.Warn("hot-reload rejected: config invalid", "err", err)
					return
				}
				slog.Info("config reloaded", "quality", c.Retime.Quality, "cost", c.Retime.Cost)
			})
			if flagConfig != "" {
				stopWatch, err := loader.Watch()
				if err != nil {
					slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
				} else {
					defer stopWatch()
				}
			}

			srv := &http.Server{
				Addr:         addr,
				Handler:      api.New(eng, loader),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 5 * time.Minute,
				IdleTimeout:  60 * time.Second,
			}

			errC := make(chan error, 1)
			go func() {
				slog.Info("server starting", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errC <- err
				}
				close(errC)
			}()

			select {
			case err := <-errC:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}
			slog.Info("shutting down")

			shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutCancel()
			_ = srv.Shutdown(shutCtx)
			cancel()
			eng.Shutdown()
			slog.Info("goodbye")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")

	return cmd
}
