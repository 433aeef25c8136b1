package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vinodismyname/salesdash/internal/dashboard"
	"github.com/vinodismyname/salesdash/internal/presenter"
)

type exportOptions struct {
	out    string
	format string
	sel    presenter.Selection
}

// exported records one written chart file.
type exported struct {
	Panel presenter.PanelID
	Path  string
	Bytes int
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	eo := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render every dashboard chart to files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := presenter.ParseFormat(eo.format)
			if err != nil {
				return err
			}
			a, err := newApp(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.close(context.Background()) }()

			files, skipped, err := exportCharts(cmd.Context(), a.service, eo.out, format, eo.sel)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, f := range files {
				fmt.Fprintf(w, "%-16s %s (%d bytes)\n", f.Panel, f.Path, f.Bytes)
			}
			for _, p := range skipped {
				fmt.Fprintf(w, "%-16s skipped: %s\n", p.ID, p.Warning)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&eo.out, "out", ".", "output directory")
	f.StringVar(&eo.format, "format", string(presenter.FormatSVG), "image format: svg or png")
	f.StringVar(&eo.sel.ScatterX, "scatter-x", "", "scatter plot X column")
	f.StringVar(&eo.sel.ScatterY, "scatter-y", "", "scatter plot Y column")
	f.StringVar(&eo.sel.ExploreX, "explore-x", "", "explorer X column")
	f.StringVar(&eo.sel.ExploreY, "explore-y", "", "explorer Y column")
	return cmd
}

// exportCharts loads the default source once and writes one file per panel
// that has a chart. Panels carrying a warning are returned as skipped.
func exportCharts(ctx context.Context, svc *dashboard.Service, dir string, format presenter.Format, sel presenter.Selection) ([]exported, []presenter.Panel, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("export: %w", err)
	}
	p, err := svc.Prepare(ctx, "")
	if err != nil {
		return nil, nil, err
	}

	panels := svc.Presenter().Panels(p.Dataset(), sel)
	files := make([]exported, len(panels))
	var skipped []presenter.Panel

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, panel := range panels {
		if panel.Chart == nil {
			skipped = append(skipped, panel)
			continue
		}
		g.Go(func() error {
			var buf bytes.Buffer
			if err := svc.Chart(gctx, p, panel.ID, sel, format, &buf); err != nil {
				return err
			}
			path := filepath.Join(dir, string(panel.ID)+"."+string(format))
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("export %s: %w", panel.ID, err)
			}
			files[i] = exported{Panel: panel.ID, Path: path, Bytes: buf.Len()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := files[:0]
	for _, f := range files {
		if f.Path != "" {
			out = append(out, f)
		}
	}
	return out, skipped, nil
}
