package pipeline

import (
	"github.com/vinodismyname/salesdash/internal/dataset"
)

// CleanReport summarizes what Clean changed.
type CleanReport struct {
	// Imputed counts null measures replaced with zero.
	Imputed int `json:"imputed"`
	// Dropped counts rows removed for a negative measure.
	Dropped int `json:"dropped"`
	// Skipped is true when the measure column is absent.
	Skipped bool `json:"skipped,omitempty"`
}

// Clean replaces null measures with 0 and then drops rows whose measure is
// negative. The substitution runs first, so a null becomes a retained 0.
// When the measure column is absent the dataset passes through unchanged.
// Non-numeric measure cells are coerced to numbers first; unparsable ones count as null.
func Clean(ds *dataset.Dataset, schema dataset.Schema) (*dataset.Dataset, CleanReport) {
	var rep CleanReport
	col := ds.Index(schema.Measure)
	if col < 0 {
		rep.Skipped = true
		return ds, rep
	}

	kind := ds.Columns[col].Kind
	filled := ds.Map(col, dataset.KindNumeric, func(v dataset.Value) dataset.Value {
		v = asNumber(v, kind)
		if !v.Valid {
			rep.Imputed++
			return dataset.Number(0)
		}
		return v
	})

	out := filled.Filter(func(row []dataset.Value) bool {
		if row[col].Num < 0 {
			rep.Dropped++
			return false
		}
		return true
	})
	return out, rep
}

func asNumber(v dataset.Value, kind dataset.Kind) dataset.Value {
	if !v.Valid || kind == dataset.KindNumeric {
		return v
	}
	if kind == dataset.KindText {
		if f, ok := dataset.ParseNumber(v.Str); ok {
			return dataset.Number(f)
		}
	}
	return dataset.Null
}
