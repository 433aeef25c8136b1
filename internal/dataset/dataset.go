package dataset

import (
	"fmt"
	"strconv"
	"time"
)

// Kind classifies the values held by a column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindTime:
		return "time"
	default:
		return "text"
	}
}

// MarshalText renders the kind by name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Value is a single typed cell. Valid is false for missing values.
type Value struct {
	Num   float64
	Str   string
	Time  time.Time
	Valid bool
}

// Null is the missing value.
var Null = Value{}

// Number returns a valid numeric value.
func Number(f float64) Value { return Value{Num: f, Valid: true} }

// Text returns a valid text value.
func Text(s string) Value { return Value{Str: s, Valid: true} }

// Timestamp returns a valid time value.
func Timestamp(t time.Time) Value { return Value{Time: t, Valid: true} }

// Format renders the value as a label according to the column kind.
// Missing values render as the empty string.
func (v Value) Format(kind Kind) string {
	if !v.Valid {
		return ""
	}
	switch kind {
	case KindNumeric:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindTime:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format(time.RFC3339)
	default:
		return v.Str
	}
}

// Interface returns the JSON-friendly representation of the value.
func (v Value) Interface(kind Kind) any {
	if !v.Valid {
		return nil
	}
	switch kind {
	case KindNumeric:
		return v.Num
	case KindTime:
		return v.Time
	default:
		return v.Str
	}
}

// Column describes one named, typed column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Dataset is an ordered set of rows sharing a column schema.
// Operations return new datasets and never modify the receiver's rows.
type Dataset struct {
	Columns []Column
	Rows    [][]Value
}

// New returns an empty dataset with the given columns.
func New(cols ...Column) *Dataset {
	c := make([]Column, len(cols))
	copy(c, cols)
	return &Dataset{Columns: c}
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Index returns the position of the named column or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (d *Dataset) Has(name string) bool { return d.Index(name) >= 0 }

// Column returns the named column definition.
func (d *Dataset) Column(name string) (Column, bool) {
	i := d.Index(name)
	if i < 0 {
		return Column{}, false
	}
	return d.Columns[i], true
}

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// NumericColumns returns the names of numeric columns in order.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, c := range d.Columns {
		if c.Kind == KindNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Append adds a row. The row must match the column count.
func (d *Dataset) Append(row ...Value) error {
	if len(row) != len(d.Columns) {
		return fmt.Errorf("dataset: row has %d values, want %d", len(row), len(d.Columns))
	}
	r := make([]Value, len(row))
	copy(r, row)
	d.Rows = append(d.Rows, r)
	return nil
}

// Slice returns up to n rows starting at off. Row slices are shared.
func (d *Dataset) Slice(off, n int) *Dataset {
	out := New(d.Columns...)
	if off < 0 {
		off = 0
	}
	if off >= len(d.Rows) || n <= 0 {
		return out
	}
	end := off + n
	if end > len(d.Rows) {
		end = len(d.Rows)
	}
	out.Rows = d.Rows[off:end:end]
	return out
}

// Head returns the first n rows.
func (d *Dataset) Head(n int) *Dataset { return d.Slice(0, n) }

// Filter returns the rows for which keep returns true.
func (d *Dataset) Filter(keep func(row []Value) bool) *Dataset {
	out := New(d.Columns...)
	out.Rows = make([][]Value, 0, len(d.Rows))
	for _, r := range d.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Map returns a dataset whose column at index col is replaced by fn's result.
// Rows are copied so the receiver is left untouched.
func (d *Dataset) Map(col int, kind Kind, fn func(v Value) Value) *Dataset {
	out := New(d.Columns...)
	out.Columns[col].Kind = kind
	out.Rows = make([][]Value, len(d.Rows))
	for i, r := range d.Rows {
		nr := make([]Value, len(r))
		copy(nr, r)
		nr[col] = fn(r[col])
		out.Rows[i] = nr
	}
	return out
}

// WithColumn returns a dataset with the column set to values, replacing an
// existing column of the same name or appending a new one.
func (d *Dataset) WithColumn(col Column, values []Value) (*Dataset, error) {
	if len(values) != len(d.Rows) {
		return nil, fmt.Errorf("dataset: column %q has %d values, want %d", col.Name, len(values), len(d.Rows))
	}
	idx := d.Index(col.Name)
	cols := make([]Column, len(d.Columns), len(d.Columns)+1)
	copy(cols, d.Columns)
	if idx < 0 {
		idx = len(cols)
		cols = append(cols, col)
	} else {
		cols[idx] = col
	}
	out := &Dataset{Columns: cols, Rows: make([][]Value, len(d.Rows))}
	for i, r := range d.Rows {
		nr := make([]Value, len(cols))
		copy(nr, r)
		nr[idx] = values[i]
		out.Rows[i] = nr
	}
	return out, nil
}

// Records converts rows to column-keyed maps for JSON output.
func (d *Dataset) Records() []map[string]any {
	out := make([]map[string]any, len(d.Rows))
	for i, r := range d.Rows {
		m := make(map[string]any, len(d.Columns))
		for j, c := range d.Columns {
			m[c.Name] = r[j].Interface(c.Kind)
		}
		out[i] = m
	}
	return out
}

// Cells renders every row as display strings, in column order.
func (d *Dataset) Cells() [][]string {
	out := make([][]string, len(d.Rows))
	for i, r := range d.Rows {
		line := make([]string, len(d.Columns))
		for j, c := range d.Columns {
			line[j] = r[j].Format(c.Kind)
		}
		out[i] = line
	}
	return out
}
