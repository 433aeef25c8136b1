// Package dashboard runs the Loader, Cleaner, Aggregator and Presenter stages
// for one request and assembles the result the surfaces render.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/vinodismyname/salesdash/config"
	"github.com/vinodismyname/salesdash/internal/dataset"
	"github.com/vinodismyname/salesdash/internal/loader"
	"github.com/vinodismyname/salesdash/internal/pipeline"
	"github.com/vinodismyname/salesdash/internal/presenter"
)

var (
	// ErrDatasetNotFound is returned for an unknown or expired dataset id.
	ErrDatasetNotFound = errors.New("dashboard: dataset not found")
	// ErrNoChart is returned when a panel carries a warning instead of a chart.
	ErrNoChart = errors.New("dashboard: panel has no chart")
)

// Loader resolves sources to cached datasets. Implemented by *loader.Loader.
type Loader interface {
	Load(ctx context.Context, raw string) (*loader.Entry, bool, error)
	Get(id string) (*loader.Entry, bool)
}

// PanelObserver counts rendered charts.
type PanelObserver interface {
	ObservePanel(panel, format string)
}

// Options configures a Service.
type Options struct {
	Loader      Loader
	Schema      dataset.Schema
	Source      string
	Title       string
	Subtitle    string
	PreviewRows int
	Renderer    *presenter.Renderer
	Observer    PanelObserver
}

// Service builds dashboard views over the configured default source.
type Service struct {
	loader      Loader
	schema      dataset.Schema
	presenter   *presenter.Presenter
	renderer    presenter.Renderer
	observer    PanelObserver
	source      string
	title       string
	subtitle    string
	previewRows int
}

// New constructs a Service.
func New(opts Options) *Service {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = config.DefaultPreviewRows
	}
	if opts.Title == "" {
		opts.Title = config.DefaultTitle
	}
	renderer := presenter.DefaultRenderer
	if opts.Renderer != nil {
		renderer = *opts.Renderer
	}
	return &Service{
		loader:      opts.Loader,
		schema:      opts.Schema,
		presenter:   presenter.New(opts.Schema),
		renderer:    renderer,
		observer:    opts.Observer,
		source:      opts.Source,
		title:       opts.Title,
		subtitle:    opts.Subtitle,
		previewRows: opts.PreviewRows,
	}
}

// Source returns the default source used when callers pass "".
func (s *Service) Source() string { return s.source }

// Schema returns the column schema the pipeline runs with.
func (s *Service) Schema() dataset.Schema { return s.schema }

// PreviewRows is the default number of preview rows.
func (s *Service) PreviewRows() int { return s.previewRows }

// Presenter returns the panel builder.
func (s *Service) Presenter() *presenter.Presenter { return s.presenter }

// Prepared is a loaded dataset with the pipeline applied.
type Prepared struct {
	Entry    *loader.Entry
	CacheHit bool
	Result   *pipeline.Result
}

// Dataset returns the aggregated dataset.
func (p *Prepared) Dataset() *dataset.Dataset { return p.Result.Dataset }

// Prepare loads source (or the default source when empty) and runs the pipeline.
func (s *Service) Prepare(ctx context.Context, source string) (*Prepared, error) {
	if source == "" {
		source = s.source
	}
	e, hit, err := s.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, e, hit)
}

// PrepareByID runs the pipeline over a dataset previously returned by Prepare.
func (s *Service) PrepareByID(ctx context.Context, id string) (*Prepared, error) {
	e, ok := s.loader.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDatasetNotFound, id)
	}
	return s.run(ctx, e, true)
}

func (s *Service) run(ctx context.Context, e *loader.Entry, hit bool) (*Prepared, error) {
	res, err := pipeline.Run(ctx, e.Dataset, s.schema)
	if err != nil {
		return nil, err
	}
	return &Prepared{Entry: e, CacheHit: hit, Result: res}, nil
}

// View is everything the dashboard page shows.
type View struct {
	Title     string               `json:"title"`
	Subtitle  string               `json:"subtitle,omitempty"`
	Source    string               `json:"source"`
	DatasetID string               `json:"dataset_id"`
	CacheHit  bool                 `json:"cache_hit"`
	LoadedAt  time.Time            `json:"loaded_at"`
	Rows      int                  `json:"rows"`
	Columns   []dataset.Column     `json:"columns"`
	Preview   *dataset.Dataset     `json:"-"`
	Groups    []pipeline.GroupRow  `json:"groups"`
	Panels    []presenter.Panel    `json:"panels"`
	Clean     pipeline.CleanReport `json:"clean"`
	Selection presenter.Selection  `json:"selection"`
}

// Heading returns the page title and subtitle, which do not depend on the data.
func (s *Service) Heading() (string, string) { return s.title, s.subtitle }

// Build loads source and assembles the full dashboard for sel.
func (s *Service) Build(ctx context.Context, source string, sel presenter.Selection) (*View, error) {
	p, err := s.Prepare(ctx, source)
	if err != nil {
		return nil, err
	}
	return s.View(p, sel), nil
}

// View assembles the dashboard for an already prepared dataset.
func (s *Service) View(p *Prepared, sel presenter.Selection) *View {
	ds := p.Dataset()
	return &View{
		Title:     s.title,
		Subtitle:  s.subtitle,
		Source:    p.Entry.Source.Key,
		DatasetID: p.Entry.ID,
		CacheHit:  p.CacheHit,
		LoadedAt:  p.Entry.LoadedAt,
		Rows:      ds.Len(),
		Columns:   ds.Columns,
		Preview:   ds.Head(s.previewRows),
		Groups:    p.Result.Table,
		Panels:    s.presenter.Panels(ds, sel),
		Clean:     p.Result.Clean,
		Selection: sel,
	}
}

// Chart renders one panel of the prepared dataset to w.
func (s *Service) Chart(ctx context.Context, p *Prepared, id presenter.PanelID, sel presenter.Selection, f presenter.Format, w io.Writer) error {
	panel, err := s.presenter.Panel(p.Dataset(), id, sel)
	if err != nil {
		return err
	}
	if panel.Chart == nil {
		return fmt.Errorf("%w: %s: %s", ErrNoChart, id, panel.Warning)
	}
	if err := s.renderer.Render(w, panel.Chart, f); err != nil {
		return fmt.Errorf("dashboard: render %s: %w", id, err)
	}
	if s.observer != nil {
		s.observer.ObservePanel(string(id), string(f))
	}
	zerolog.Ctx(ctx).Debug().Str("panel", string(id)).Str("format", string(f)).Msg("chart rendered")
	return nil
}
