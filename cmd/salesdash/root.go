package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vinodismyname/salesdash/config"
	"github.com/vinodismyname/salesdash/pkg/version"
)

// rootOptions holds the persistent flags and the configuration they produce.
type rootOptions struct {
	cfgFile  string
	source   string
	logLevel string

	cfg    *config.Config
	logger zerolog.Logger
	stderr io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{stderr: os.Stderr}

	cmd := &cobra.Command{
		Use:           "salesdash",
		Short:         "Sales dashboard over a spreadsheet of sales records",
		Long:          "salesdash loads a sales workbook, cleans it, aggregates Sales by Country and Segment, and serves the result as an HTML dashboard, an MCP tool server or exported chart files.",
		Version:       version.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.cfgFile, "config", "", "config file (default ./salesdash.yaml when present)")
	f.StringVar(&opts.source, "source", "", "workbook URL or path (overrides config)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides config)")

	cmd.AddCommand(newServeCmd(opts), newMCPCmd(opts), newExportCmd(opts))
	return cmd
}

// load reads configuration, applies flag overrides and builds the logger.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("source") {
		cfg.Source = o.source
	}
	if f.Changed("log-level") {
		cfg.Log.Level = strings.ToLower(o.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	o.logger, err = newLogger(cfg.Log, o.stderr)
	if err != nil {
		return err
	}
	cmd.SetContext(o.logger.WithContext(cmd.Context()))
	return nil
}

// newLogger builds the service logger. Output always goes to w (stderr) so
// the stdio transport owns stdout.
func newLogger(c config.Log, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log level: %w", err)
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if c.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zlog.Output(w).Level(level).With().Str("service", "salesdash").Logger(), nil
}
