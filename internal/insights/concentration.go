// Package insights derives summary statistics from a prepared sales dataset.
package insights

import (
	"errors"
	"fmt"
	"math"

	"github.com/vinodismyname/salesdash/internal/dataset"
	"github.com/vinodismyname/salesdash/internal/pipeline"
)

// DefaultTopN is the number of groups reported when the caller passes none.
const DefaultTopN = 5

// ErrZeroTotal is returned when the measure sums to zero.
var ErrZeroTotal = errors.New("insights: zero total measure; cannot compute shares")

// Band classifies an HHI value.
type Band string

const (
	Unconcentrated         Band = "unconcentrated"
	ModeratelyConcentrated Band = "moderately_concentrated"
	HighlyConcentrated     Band = "highly_concentrated"
)

// GroupShare is one group's contribution to the measure total.
type GroupShare struct {
	Name  string  `json:"name"`
	Share float64 `json:"share"`
	Total float64 `json:"total"`
}

// Concentration reports Top-N share and the Herfindahl-Hirschman index of a
// measure over one grouping column.
type Concentration struct {
	Dimension  string       `json:"dimension"`
	Measure    string       `json:"measure"`
	TopN       int          `json:"top_n"`
	Groups     []GroupShare `json:"groups"`
	OtherShare float64      `json:"other_share"`
	GroupCount int          `json:"group_count"`
	Total      float64      `json:"total"`
	HHI        float64      `json:"hhi"`
	Band       Band         `json:"band"`
}

// Concentrate sums measure per distinct value of dimension and computes the
// share held by the largest topN groups. topN outside 1..10 means DefaultTopN.
func Concentrate(ds *dataset.Dataset, dimension, measure string, topN int) (Concentration, error) {
	out := Concentration{Dimension: dimension, Measure: measure, TopN: topN}
	if out.TopN <= 0 || out.TopN > 10 {
		out.TopN = DefaultTopN
	}

	totals, err := pipeline.TotalsBy(ds, dimension, measure)
	if err != nil {
		return out, err
	}
	if c, _ := ds.Column(measure); c.Kind != dataset.KindNumeric {
		return out, fmt.Errorf("%w: %q is not numeric", pipeline.ErrSchema, measure)
	}

	for _, t := range totals {
		out.Total += t.Value
	}
	if out.Total == 0 {
		return out, ErrZeroTotal
	}
	out.GroupCount = len(totals)

	keep := min(out.TopN, len(totals))
	var topShare float64
	for _, t := range totals[:keep] {
		sh := t.Value / out.Total
		out.Groups = append(out.Groups, GroupShare{Name: t.Label, Share: round3(sh), Total: t.Value})
		topShare += sh
	}
	out.OtherShare = round3(1 - topShare)

	// sum of squared shares over all groups
	var hhi float64
	for _, t := range totals {
		sh := t.Value / out.Total
		hhi += sh * sh
	}
	out.HHI = round3(hhi)
	out.Band = bandFor(hhi)
	return out, nil
}

// bandFor uses the common antitrust thresholds on the 0..1 scale.
func bandFor(hhi float64) Band {
	switch {
	case hhi < 0.15:
		return Unconcentrated
	case hhi < 0.25:
		return ModeratelyConcentrated
	default:
		return HighlyConcentrated
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
