package presenter

// ChartKind selects how a Chart is drawn.
type ChartKind string

const (
	KindScatter    ChartKind = "scatter"
	KindBar        ChartKind = "bar"
	KindGroupedBar ChartKind = "grouped_bar"
)

// Point is one scatter mark. Label carries the hover text.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

// Series is a named, separately colored set of points.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// BarGroup is one bar per category; grouped charts carry several.
type BarGroup struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Chart is a renderer-independent description of a figure.
type Chart struct {
	Kind       ChartKind  `json:"kind"`
	Title      string     `json:"title"`
	XLabel     string     `json:"x_label"`
	YLabel     string     `json:"y_label"`
	Series     []Series   `json:"series,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	Bars       []BarGroup `json:"bars,omitempty"`
}

// Empty reports whether the chart has nothing to draw.
func (c *Chart) Empty() bool {
	switch c.Kind {
	case KindScatter:
		for _, s := range c.Series {
			if len(s.Points) > 0 {
				return false
			}
		}
		return true
	default:
		return len(c.Categories) == 0 || len(c.Bars) == 0
	}
}
