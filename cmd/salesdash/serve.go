package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	transporthttp "github.com/vinodismyname/salesdash/internal/transport/http"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTML dashboard and its JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("addr") {
				cfg.HTTP.Addr = addr
			}
			a, err := newApp(cfg, opts.logger)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				if err := a.close(ctx); err != nil {
					opts.logger.Warn().Err(err).Msg("cache close")
				}
			}()

			router := transporthttp.NewRouter(transporthttp.Options{
				Service:        a.service,
				Logger:         opts.logger,
				Guard:          a.guard,
				Metrics:        a.metrics,
				CORSOrigins:    cfg.HTTP.CORSOrigins,
				RateLimit:      cfg.HTTP.RateLimit,
				RateBurst:      cfg.HTTP.RateBurst,
				MaxPreviewRows: a.limits.PreviewRowLimit,
			})
			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			return transporthttp.Serve(cmd.Context(), srv, cfg.HTTP.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
