// Package pipeline cleans a loaded sales dataset and derives per-group metrics.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vinodismyname/salesdash/internal/dataset"
)

// Result is the cleaned and aggregated view of a dataset.
type Result struct {
	Dataset *dataset.Dataset
	Groups  []GroupStats
	Table   []GroupRow
	Clean   CleanReport
}

// Run cleans ds and aggregates it by (country, segment). The input is never
// modified, so Run can be called repeatedly on a cached dataset.
func Run(ctx context.Context, ds *dataset.Dataset, schema dataset.Schema) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	cleaned, rep := Clean(ds, schema)
	if rep.Skipped {
		logger.Warn().Str("measure", schema.Measure).Msg("measure column absent; cleaning skipped")
	}

	agg, err := Aggregate(cleaned, schema)
	if err != nil {
		return nil, err
	}
	table, err := GroupTable(agg, schema)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Int("rows_in", ds.Len()).
		Int("rows_out", agg.Dataset.Len()).
		Int("imputed", rep.Imputed).
		Int("dropped", rep.Dropped).
		Int("groups", len(agg.Groups)).
		Msg("pipeline completed")

	return &Result{Dataset: agg.Dataset, Groups: agg.Groups, Table: table, Clean: rep}, nil
}
