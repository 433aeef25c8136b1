package pipeline

import (
	"fmt"
	"sort"

	"github.com/vinodismyname/salesdash/internal/dataset"
)

// GroupRow is one line of the aggregated metrics table: the first row of each
// (country, segment) group with its group mean and total.
type GroupRow struct {
	Country string  `json:"country"`
	Segment string  `json:"segment"`
	Sales   float64 `json:"sales"`
	Mean    float64 `json:"avg_sales_by_group"`
	Total   float64 `json:"total_sales_by_group"`
}

// GroupTable returns the first row per group, ordered by country then segment.
func GroupTable(agg *Aggregation, schema dataset.Schema) ([]GroupRow, error) {
	ds := agg.Dataset
	ci, si, mi := ds.Index(schema.Country), ds.Index(schema.Segment), ds.Index(schema.Measure)
	ai, ti := ds.Index(ColGroupMean), ds.Index(ColGroupTotal)
	if ci < 0 || si < 0 || mi < 0 || ai < 0 || ti < 0 {
		return nil, fmt.Errorf("%w: aggregated columns not present", ErrSchema)
	}

	seen := make(map[GroupKey]struct{}, len(agg.Groups))
	out := make([]GroupRow, 0, len(agg.Groups))
	for _, row := range ds.Rows {
		k := GroupKey{Country: row[ci].Format(ds.Columns[ci].Kind), Segment: row[si].Format(ds.Columns[si].Kind)}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, GroupRow{
			Country: k.Country,
			Segment: k.Segment,
			Sales:   row[mi].Num,
			Mean:    row[ai].Num,
			Total:   row[ti].Num,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].Segment < out[j].Segment
	})
	return out, nil
}

// Total is a labelled sum of the measure.
type Total struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// TotalsBy sums the measure per distinct value of column, sorted by value
// descending. Ties keep label order. Rows with a missing label are skipped.
func TotalsBy(ds *dataset.Dataset, column, measure string) ([]Total, error) {
	gi, mi := ds.Index(column), ds.Index(measure)
	if gi < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSchema, column)
	}
	if mi < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSchema, measure)
	}
	kind := ds.Columns[gi].Kind
	acc := map[string]float64{}
	for _, row := range ds.Rows {
		if !row[gi].Valid {
			continue
		}
		// Null measures still register the label with a zero contribution.
		acc[row[gi].Format(kind)] += row[mi].Num
	}
	out := make([]Total, 0, len(acc))
	for label, v := range acc {
		out = append(out, Total{Label: label, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value == out[j].Value {
			return out[i].Label < out[j].Label
		}
		return out[i].Value > out[j].Value
	})
	return out, nil
}

// Count is the number of rows sharing a pair of labels.
type Count struct {
	A string `json:"a"`
	B string `json:"b"`
	N int    `json:"count"`
}

// CoOccurrence counts rows per (a, b) label pair, ordered by a then b.
// Rows with a missing value in either column are skipped.
func CoOccurrence(ds *dataset.Dataset, a, b string) ([]Count, error) {
	ai, bi := ds.Index(a), ds.Index(b)
	if ai < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSchema, a)
	}
	if bi < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSchema, b)
	}
	type pair struct{ a, b string }
	acc := map[pair]int{}
	for _, row := range ds.Rows {
		if !row[ai].Valid || !row[bi].Valid {
			continue
		}
		acc[pair{row[ai].Format(ds.Columns[ai].Kind), row[bi].Format(ds.Columns[bi].Kind)}]++
	}
	out := make([]Count, 0, len(acc))
	for p, n := range acc {
		out = append(out, Count{A: p.a, B: p.b, N: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out, nil
}
