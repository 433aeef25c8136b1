package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/salesdash/config"
)

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Country", "Segment", "Sales", "Units"},
		{"Canada", "Government", 100, 1},
		{"France", "Midmarket", 300, 3},
		{"Canada", "Midmarket", 50, 2},
		{"France", "Midmarket", 100, 4},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func workbookServer(t *testing.T) string {
	t.Helper()
	data := workbook(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/data.xlsx"
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.Log{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	require.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"service":"salesdash"`)

	_, err = newLogger(config.Log{Level: "loud"}, &buf)
	require.Error(t, err)
}

func TestRootOptions_FlagOverrides(t *testing.T) {
	opts := &rootOptions{stderr: &bytes.Buffer{}}
	cmd := &cobra.Command{Use: "probe"}
	cmd.Flags().StringVar(&opts.source, "source", "", "")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "")
	require.NoError(t, cmd.ParseFlags([]string{"--source", "https://example.com/other.xlsx", "--log-level", "DEBUG"}))
	cmd.SetContext(context.Background())

	require.NoError(t, opts.load(cmd))
	require.Equal(t, "https://example.com/other.xlsx", opts.cfg.Source)
	require.Equal(t, "debug", opts.cfg.Log.Level)
	require.Equal(t, zerolog.DebugLevel, opts.logger.GetLevel())
	require.Equal(t, zerolog.DebugLevel, zerolog.Ctx(cmd.Context()).GetLevel())
}

func TestRootOptions_InvalidSource(t *testing.T) {
	_, err := execute(t, "--source", "notes.txt", "export")
	require.Error(t, err)
	require.Contains(t, err.Error(), "source")
}

func TestMCP_RequiresTransport(t *testing.T) {
	_, err := execute(t, "--log-level", "error", "mcp")
	require.ErrorIs(t, err, errNoTransport)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--log-level", "error", "--source", workbookServer(t), "export", "--out", dir, "--format", "png")
	require.NoError(t, err)
	require.Contains(t, out, "country_totals")

	for _, name := range []string{"country_totals.png", "segment_totals.png", "avg_vs_ratio.png"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		require.Equal(t, []byte("\x89PNG"), data[:4])
	}
}

func TestExport_BadFormat(t *testing.T) {
	_, err := execute(t, "--log-level", "error", "--source", workbookServer(t), "export", "--format", "gif")
	require.Error(t, err)
}

func TestNewMCPServer(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.MCP.Model = "gpt-4"
	a, err := newApp(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.close(context.Background()) })

	srv, reg := newMCPServer(a)
	require.NotNil(t, srv)
	require.Equal(t, 8192, reg.ModelContextSize(""))
	tools, err := reg.Tools(context.Background())
	require.NoError(t, err)
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	require.Equal(t, []string{"chart_panel", "group_metrics", "list_columns", "load_dataset", "preview_dataset", "sales_concentration"}, names)
}
