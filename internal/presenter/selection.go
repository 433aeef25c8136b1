package presenter

import (
	"github.com/vinodismyname/salesdash/internal/dataset"
)

// Selection holds the user's axis choices. Empty or unknown names fall back
// to the first valid option.
type Selection struct {
	ScatterX string `json:"scatter_x,omitempty"`
	ScatterY string `json:"scatter_y,omitempty"`
	ExploreX string `json:"explore_x,omitempty"`
	ExploreY string `json:"explore_y,omitempty"`
}

// Picker describes a pair of axis dropdowns and their resolved values.
type Picker struct {
	X        string   `json:"x"`
	Y        string   `json:"y"`
	XOptions []string `json:"x_options"`
	YOptions []string `json:"y_options"`
}

// resolvePicker picks X from options, then Y from the options other than X.
func resolvePicker(options []string, wantX, wantY string) Picker {
	p := Picker{XOptions: options}
	p.X = pick(options, wantX)
	p.YOptions = make([]string, 0, len(options))
	for _, o := range options {
		if o != p.X {
			p.YOptions = append(p.YOptions, o)
		}
	}
	p.Y = pick(p.YOptions, wantY)
	return p
}

func pick(options []string, want string) string {
	for _, o := range options {
		if o == want {
			return o
		}
	}
	if len(options) == 0 {
		return ""
	}
	return options[0]
}

// Pair is the explorer's column pair, classified once by Classify.
type Pair interface {
	Columns() (x, y string)
	isPair()
}

// NumericPair is drawn as a scatter plot.
type NumericPair struct{ X, Y string }

// CategoricalPair is drawn as grouped co-occurrence bars.
type CategoricalPair struct{ X, Y string }

func (p NumericPair) Columns() (string, string)     { return p.X, p.Y }
func (p CategoricalPair) Columns() (string, string) { return p.X, p.Y }
func (NumericPair) isPair()                         {}
func (CategoricalPair) isPair()                     {}

// Classify returns a NumericPair when both columns are numeric.
func Classify(ds *dataset.Dataset, x, y string) Pair {
	cx, okx := ds.Column(x)
	cy, oky := ds.Column(y)
	if okx && oky && cx.Kind == dataset.KindNumeric && cy.Kind == dataset.KindNumeric {
		return NumericPair{X: x, Y: y}
	}
	return CategoricalPair{X: x, Y: y}
}
