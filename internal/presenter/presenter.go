// Package presenter turns an aggregated sales dataset into dashboard panels
// and renders their charts.
package presenter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vinodismyname/salesdash/internal/dataset"
	"github.com/vinodismyname/salesdash/internal/pipeline"
)

// PanelID names one of the fixed dashboard panels.
type PanelID string

const (
	PanelScatter       PanelID = "scatter"
	PanelCountryTotals PanelID = "country_totals"
	PanelSegmentTotals PanelID = "segment_totals"
	PanelAvgVsRatio    PanelID = "avg_vs_ratio"
	PanelExplorer      PanelID = "explorer"
)

// Catalog lists the panels in display order.
var Catalog = []PanelID{PanelScatter, PanelCountryTotals, PanelSegmentTotals, PanelAvgVsRatio, PanelExplorer}

// ErrUnknownPanel is returned for a panel id outside the catalog.
var ErrUnknownPanel = errors.New("presenter: unknown panel")

// ParsePanel validates a panel id.
func ParsePanel(s string) (PanelID, error) {
	for _, id := range Catalog {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPanel, s)
}

// Panel is one dashboard section. Chart is nil when Warning is set.
type Panel struct {
	ID      PanelID  `json:"id"`
	Heading string   `json:"heading"`
	Caption string   `json:"caption"`
	Notes   []string `json:"notes,omitempty"`
	Warning string   `json:"warning,omitempty"`
	Picker  *Picker  `json:"picker,omitempty"`
	Chart   *Chart   `json:"chart,omitempty"`
}

// Presenter builds panels for datasets following a schema.
type Presenter struct {
	schema dataset.Schema
}

// New returns a Presenter for the given schema.
func New(schema dataset.Schema) *Presenter {
	return &Presenter{schema: schema}
}

// Panels builds every catalog panel. A panel that cannot be drawn carries a
// warning; the others are unaffected.
func (p *Presenter) Panels(ds *dataset.Dataset, sel Selection) []Panel {
	out := make([]Panel, 0, len(Catalog))
	for _, id := range Catalog {
		panel, _ := p.Panel(ds, id, sel)
		out = append(out, panel)
	}
	return out
}

// Panel builds a single panel.
func (p *Presenter) Panel(ds *dataset.Dataset, id PanelID, sel Selection) (Panel, error) {
	switch id {
	case PanelScatter:
		return p.scatterPanel(ds, sel), nil
	case PanelCountryTotals:
		return p.totalsPanel(ds, id, p.schema.Country), nil
	case PanelSegmentTotals:
		return p.totalsPanel(ds, id, p.schema.Segment), nil
	case PanelAvgVsRatio:
		return p.avgRatioPanel(ds), nil
	case PanelExplorer:
		return p.explorerPanel(ds, sel), nil
	default:
		return Panel{}, fmt.Errorf("%w: %q", ErrUnknownPanel, id)
	}
}

func (p *Presenter) scatterPanel(ds *dataset.Dataset, sel Selection) Panel {
	panel := Panel{
		ID:      PanelScatter,
		Heading: "Scatter Plot between Two Numeric Columns",
		Caption: "Relationship between two numeric variables.",
		Notes: []string{
			"Pick the X and Y columns with the selectors above the chart.",
			"Each point carries its Country and Segment as a label.",
		},
	}
	numeric := ds.NumericColumns()
	if len(numeric) < 2 {
		panel.Warning = "Not enough numeric columns available for scatter plots."
		return panel
	}
	picker := resolvePicker(numeric, sel.ScatterX, sel.ScatterY)
	panel.Picker = &picker
	panel.Chart = p.scatter(ds, picker.X, picker.Y)
	return panel
}

func (p *Presenter) scatter(ds *dataset.Dataset, x, y string) *Chart {
	return &Chart{
		Kind:   KindScatter,
		Title:  fmt.Sprintf("Scatter Plot: %s vs %s", x, y),
		XLabel: x,
		YLabel: y,
		Series: []Series{{Name: y, Points: p.points(ds, x, y, p.schema.Country, p.schema.Segment)}},
	}
}

// points collects (x, y) pairs, skipping rows where either value is missing.
func (p *Presenter) points(ds *dataset.Dataset, x, y string, labels ...string) []Point {
	xi, yi := ds.Index(x), ds.Index(y)
	if xi < 0 || yi < 0 {
		return nil
	}
	var li []int
	for _, l := range labels {
		if i := ds.Index(l); i >= 0 {
			li = append(li, i)
		}
	}
	out := make([]Point, 0, ds.Len())
	for _, row := range ds.Rows {
		if !row[xi].Valid || !row[yi].Valid {
			continue
		}
		parts := make([]string, 0, len(li))
		for _, i := range li {
			parts = append(parts, row[i].Format(ds.Columns[i].Kind))
		}
		out = append(out, Point{X: row[xi].Num, Y: row[yi].Num, Label: strings.Join(parts, " / ")})
	}
	return out
}

func (p *Presenter) totalsPanel(ds *dataset.Dataset, id PanelID, column string) Panel {
	title := fmt.Sprintf("Total %s by %s", p.schema.Measure, column)
	panel := Panel{
		ID:      id,
		Heading: title,
		Caption: fmt.Sprintf("Total %s aggregated by %s, largest first.", strings.ToLower(p.schema.Measure), column),
	}
	if id == PanelCountryTotals {
		panel.Notes = []string{"Compare performance across countries."}
	} else {
		panel.Notes = []string{"Shows which customer segment contributes most to overall sales."}
	}

	totals, err := pipeline.TotalsBy(ds, column, p.schema.Measure)
	if err != nil {
		panel.Warning = fmt.Sprintf("Cannot chart totals: %v", err)
		return panel
	}
	bars := BarGroup{Name: p.schema.Measure, Values: make([]float64, len(totals))}
	cats := make([]string, len(totals))
	for i, t := range totals {
		cats[i] = t.Label
		bars.Values[i] = t.Value
	}
	panel.Chart = &Chart{
		Kind:       KindBar,
		Title:      title,
		XLabel:     column,
		YLabel:     p.schema.Measure,
		Categories: cats,
		Bars:       []BarGroup{bars},
	}
	return panel
}

func (p *Presenter) avgRatioPanel(ds *dataset.Dataset) Panel {
	panel := Panel{
		ID:      PanelAvgVsRatio,
		Heading: fmt.Sprintf("Average %s vs. %s Ratio", p.schema.Measure, p.schema.Measure),
		Caption: "Average per (country, segment) group against each row's share of its group total.",
		Notes: []string{
			"One color per country.",
			"Each point is labelled with its segment.",
		},
	}
	mi, ri, ci := ds.Index(pipeline.ColGroupMean), ds.Index(pipeline.ColRatio), ds.Index(p.schema.Country)
	if mi < 0 || ri < 0 || ci < 0 {
		panel.Warning = "Aggregated columns are not available for this dataset."
		return panel
	}
	si := ds.Index(p.schema.Segment)

	byCountry := map[string][]Point{}
	for _, row := range ds.Rows {
		if !row[mi].Valid || !row[ri].Valid {
			continue
		}
		country := row[ci].Format(ds.Columns[ci].Kind)
		pt := Point{X: row[mi].Num, Y: row[ri].Num}
		if si >= 0 {
			pt.Label = row[si].Format(ds.Columns[si].Kind)
		}
		byCountry[country] = append(byCountry[country], pt)
	}
	names := make([]string, 0, len(byCountry))
	for n := range byCountry {
		names = append(names, n)
	}
	sort.Strings(names)
	series := make([]Series, len(names))
	for i, n := range names {
		series[i] = Series{Name: n, Points: byCountry[n]}
	}

	panel.Chart = &Chart{
		Kind:   KindScatter,
		Title:  fmt.Sprintf("Average %s vs. %s Ratio by %s", p.schema.Measure, p.schema.Measure, p.schema.Country),
		XLabel: pipeline.ColGroupMean,
		YLabel: pipeline.ColRatio,
		Series: series,
	}
	return panel
}

func (p *Presenter) explorerPanel(ds *dataset.Dataset, sel Selection) Panel {
	panel := Panel{
		ID:      PanelExplorer,
		Heading: "Explore Relationships Between Columns",
		Caption: "Choose any two columns to explore their relationship.",
		Notes: []string{
			"Two numeric columns are drawn as a scatter plot.",
			"Otherwise a grouped bar chart counts the rows per value pair.",
		},
	}
	if len(ds.Columns) < 2 {
		panel.Warning = "At least two columns are needed to explore relationships."
		return panel
	}
	picker := resolvePicker(ds.Names(), sel.ExploreX, sel.ExploreY)
	panel.Picker = &picker

	switch pair := Classify(ds, picker.X, picker.Y).(type) {
	case NumericPair:
		panel.Chart = p.scatter(ds, pair.X, pair.Y)
	case CategoricalPair:
		chart, err := coOccurrenceChart(ds, pair)
		if err != nil {
			panel.Warning = fmt.Sprintf("Cannot chart %s vs %s: %v", pair.X, pair.Y, err)
			return panel
		}
		panel.Chart = chart
	}
	return panel
}

func coOccurrenceChart(ds *dataset.Dataset, pair CategoricalPair) (*Chart, error) {
	counts, err := pipeline.CoOccurrence(ds, pair.X, pair.Y)
	if err != nil {
		return nil, err
	}
	var cats, groups []string
	catIdx := map[string]int{}
	groupIdx := map[string]int{}
	for _, c := range counts {
		if _, ok := catIdx[c.A]; !ok {
			catIdx[c.A] = len(cats)
			cats = append(cats, c.A)
		}
		if _, ok := groupIdx[c.B]; !ok {
			groupIdx[c.B] = 0
			groups = append(groups, c.B)
		}
	}
	sort.Strings(groups)
	bars := make([]BarGroup, len(groups))
	for i, g := range groups {
		groupIdx[g] = i
		bars[i] = BarGroup{Name: g, Values: make([]float64, len(cats))}
	}
	for _, c := range counts {
		bars[groupIdx[c.B]].Values[catIdx[c.A]] = float64(c.N)
	}
	return &Chart{
		Kind:       KindGroupedBar,
		Title:      fmt.Sprintf("Bar Chart: %s vs %s", pair.X, pair.Y),
		XLabel:     pair.X,
		YLabel:     "Count",
		Categories: cats,
		Bars:       bars,
	}, nil
}
