package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultSourceURL, c.Source)
	require.Equal(t, DefaultTitle, c.Title)
	require.Equal(t, DefaultPreviewRows, c.PreviewRows)
	require.Equal(t, "Sales", c.Schema.Measure)
	require.Equal(t, DefaultHTTPAddr, c.HTTP.Addr)
	require.Equal(t, DefaultCacheIdleTTL, c.Loader.CacheTTL)
	require.Equal(t, DefaultModel, c.MCP.Model)
	require.Equal(t, "info", c.Log.Level)
	require.Equal(t, DefaultMaxPreviewRows, c.Limits.MaxPreviewRows)
}

func TestLoad_MaxPreviewRows(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SALESDASH_LIMITS_MAX_PREVIEW_ROWS", "25")
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 25, c.Limits.MaxPreviewRows)

	t.Setenv("SALESDASH_LIMITS_MAX_PREVIEW_ROWS", "0")
	_, err = Load("")
	require.ErrorContains(t, err, "maxpreviewrows must satisfy min=1")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "salesdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source: https://example.com/file.xlsx
preview_rows: 10
http:
  addr: ":9000"
loader:
  cache_ttl: 5m
mcp:
  disabled_tools: [chart_panel]
`), 0o600))
	t.Setenv("SALESDASH_HTTP_ADDR", ":9100")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/file.xlsx", c.Source)
	require.Equal(t, 10, c.PreviewRows)
	require.Equal(t, ":9100", c.HTTP.Addr)
	require.Equal(t, 5*time.Minute, c.Loader.CacheTTL)
	require.Equal(t, []string{"chart_panel"}, c.MCP.DisabledTools)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SALESDASH_PREVIEW_ROWS", "0")
	_, err := Load("")
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestValidate_Source(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	c.Source = "report.pdf"
	require.ErrorContains(t, c.Validate(), "source")
	c.Source = "./data/sales.xls"
	require.NoError(t, c.Validate())
}
