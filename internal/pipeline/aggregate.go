package pipeline

import (
	"errors"
	"fmt"

	"github.com/vinodismyname/salesdash/internal/dataset"
)

// Columns added to every row by Aggregate.
const (
	ColGroupMean  = "avg_sales_by_group"
	ColGroupTotal = "total_sales_by_group"
	ColRatio      = "sales_ratio"
)

// ErrSchema indicates a required column is missing.
var ErrSchema = errors.New("pipeline: missing required column")

// GroupKey partitions rows for aggregation.
type GroupKey struct {
	Country string `json:"country"`
	Segment string `json:"segment"`
}

// GroupStats holds the measure statistics of one group.
type GroupStats struct {
	Key   GroupKey `json:"key"`
	Count int      `json:"count"`
	Sum   float64  `json:"sum"`
	Mean  float64  `json:"mean"`
}

// Aggregation is the result of Aggregate: the enriched rows and the
// per-group statistics in first-appearance order.
type Aggregation struct {
	Dataset *dataset.Dataset
	Groups  []GroupStats
}

// Ratio is a row's share of its group total. It is 0 when the total is 0.
func Ratio(measure, groupSum float64) float64 {
	if groupSum == 0 {
		return 0
	}
	return measure / groupSum
}

// Aggregate computes the mean and sum of the measure per (country, segment),
// joins both onto every row and adds the row's contribution ratio.
// Missing values in the key columns form their own group under an empty label.
func Aggregate(ds *dataset.Dataset, schema dataset.Schema) (*Aggregation, error) {
	ci, si, mi := ds.Index(schema.Country), ds.Index(schema.Segment), ds.Index(schema.Measure)
	for _, req := range []struct {
		name string
		idx  int
	}{{schema.Country, ci}, {schema.Segment, si}, {schema.Measure, mi}} {
		if req.idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrSchema, req.name)
		}
	}
	ck, sk := ds.Columns[ci].Kind, ds.Columns[si].Kind

	keys := make([]GroupKey, ds.Len())
	index := make(map[GroupKey]int)
	var groups []GroupStats
	for i, row := range ds.Rows {
		k := GroupKey{Country: row[ci].Format(ck), Segment: row[si].Format(sk)}
		keys[i] = k
		g, ok := index[k]
		if !ok {
			g = len(groups)
			index[k] = g
			groups = append(groups, GroupStats{Key: k})
		}
		groups[g].Count++
		if row[mi].Valid {
			groups[g].Sum += row[mi].Num
		}
	}
	for i := range groups {
		groups[i].Mean = groups[i].Sum / float64(groups[i].Count)
	}

	means := make([]dataset.Value, ds.Len())
	totals := make([]dataset.Value, ds.Len())
	ratios := make([]dataset.Value, ds.Len())
	for i, row := range ds.Rows {
		g := groups[index[keys[i]]]
		means[i] = dataset.Number(g.Mean)
		totals[i] = dataset.Number(g.Sum)
		ratios[i] = dataset.Number(Ratio(row[mi].Num, g.Sum))
	}

	out := ds
	for _, c := range []struct {
		name   string
		values []dataset.Value
	}{
		{ColGroupMean, means},
		{ColGroupTotal, totals},
		{ColRatio, ratios},
	} {
		var err error
		out, err = out.WithColumn(dataset.Column{Name: c.name, Kind: dataset.KindNumeric}, c.values)
		if err != nil {
			return nil, err
		}
	}
	return &Aggregation{Dataset: out, Groups: groups}, nil
}
