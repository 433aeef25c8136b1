package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/vinodismyname/salesdash/internal/registry"
	"github.com/vinodismyname/salesdash/internal/telemetry"
	"github.com/vinodismyname/salesdash/pkg/version"
)

var errNoTransport = errors.New("no transport selected; use --stdio to run over stdio")

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var useStdio bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Expose the dashboard pipeline as MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !useStdio {
				return errNoTransport
			}
			a, err := newApp(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.close(context.Background()) }()

			srv, reg := newMCPServer(a)
			opts.logger.Info().
				Str("version", version.Version()).
				Str("model", reg.Model()).
				Int("model_context_size", reg.ModelContextSize("")).
				Bool("stdio", useStdio).
				Msg("server bootstrap configured")

			// transport errors go to stderr so clients don't misread stdout
			if err := server.ServeStdio(srv); err != nil {
				return fmt.Errorf("stdio server: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&useStdio, "stdio", false, "run the MCP server over stdio")
	return cmd
}

// newMCPServer builds the tool server and registers the dashboard tools.
func newMCPServer(a *app) (*server.MCPServer, *registry.Registry) {
	filter := registry.NewDisabledToolFilter(a.cfg.MCP.DisabledTools)
	srv := server.NewMCPServer(
		"Sales Dashboard",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(telemetry.BuildHooks(a.logger, a.metrics)),
		server.WithToolHandlerMiddleware(a.guard.ToolMiddleware),
		server.WithToolFilter(filter.FilterTools),
	)

	reg := registry.New()
	reg.WithModel(a.cfg.MCP.Model)
	tools := registry.NewDashboardTools(a.service, reg, a.limits, a.cfg.PreviewRows)
	registry.RegisterDashboardTools(srv, reg, tools)
	return srv, reg
}
