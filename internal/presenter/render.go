package presenter

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Format is an output image format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ErrFormat is returned for an unsupported image format.
var ErrFormat = errors.New("presenter: unsupported chart format")

// ParseFormat validates a format name. The empty string selects SVG.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Renderer draws charts at a fixed canvas size.
type Renderer struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultRenderer draws 8x5 inch charts.
var DefaultRenderer = Renderer{Width: 8 * vg.Inch, Height: 5 * vg.Inch}

// Render writes the chart in the given format to w.
func (r Renderer) Render(w io.Writer, c *Chart, f Format) error {
	if c == nil {
		return errors.New("presenter: nil chart")
	}
	p := plot.New()
	p.Title.Text = c.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Add(plotter.NewGrid())

	var err error
	switch c.Kind {
	case KindScatter:
		err = addScatter(p, c)
	case KindBar, KindGroupedBar:
		err = addBars(p, c)
	default:
		err = fmt.Errorf("presenter: unknown chart kind %q", c.Kind)
	}
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(r.Width, r.Height, string(f))
	if err != nil {
		return fmt.Errorf("presenter: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func addScatter(p *plot.Plot, c *Chart) error {
	drawn := 0
	for i, s := range c.Series {
		if len(s.Points) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			xys[j].X, xys[j].Y = pt.X, pt.Y
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("presenter: series %q: %w", s.Name, err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		sc.GlyphStyle.Color = plotutil.Color(i)
		p.Add(sc)
		if len(c.Series) > 1 {
			p.Legend.Add(s.Name, sc)
		}
		drawn++
	}
	if drawn > 1 {
		p.Legend.Top = true
	}
	return nil
}

func addBars(p *plot.Plot, c *Chart) error {
	if c.Empty() {
		return nil
	}
	n := len(c.Bars)
	width := vg.Points(40) / vg.Length(n)
	if width < vg.Points(4) {
		width = vg.Points(4)
	}
	for i, g := range c.Bars {
		bars, err := plotter.NewBarChart(plotter.Values(g.Values), width)
		if err != nil {
			return fmt.Errorf("presenter: bars %q: %w", g.Name, err)
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = vg.Length(float64(i)-float64(n-1)/2) * width
		p.Add(bars)
		if n > 1 {
			p.Legend.Add(g.Name, bars)
		}
	}
	if n > 1 {
		p.Legend.Top = true
	}
	p.NominalX(c.Categories...)
	if len(c.Categories) > 6 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	return nil
}
