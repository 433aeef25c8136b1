package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// InferOptions forces the kind of specific columns during inference.
type InferOptions struct {
	// Numeric columns are coerced to numbers; unparsable cells become null.
	Numeric []string
	// Dates are parsed into time values; unparsable cells become null.
	Dates []string
}

// FromRows builds a Dataset from a header row and raw cell strings. Columns whose
// non-empty cells all parse as numbers become numeric, the rest text. Empty cells
// are null. Rows with no content are skipped.
func FromRows(header []string, rows [][]string, opts InferOptions) *Dataset {
	names := headerNames(header, rows)
	force := make(map[string]Kind, len(opts.Numeric)+len(opts.Dates))
	for _, n := range opts.Numeric {
		force[n] = KindNumeric
	}
	for _, n := range opts.Dates {
		force[n] = KindTime
	}

	body := make([][]string, 0, len(rows))
	for _, r := range rows {
		if blank(r) {
			continue
		}
		body = append(body, r)
	}

	ds := &Dataset{Columns: make([]Column, len(names)), Rows: make([][]Value, len(body))}
	for i := range ds.Rows {
		ds.Rows[i] = make([]Value, len(names))
	}
	for j, name := range names {
		kind, forced := force[name]
		if !forced {
			kind = inferKind(body, j)
		}
		ds.Columns[j] = Column{Name: name, Kind: kind}
		for i, r := range body {
			ds.Rows[i][j] = parseCell(cell(r, j), kind)
		}
	}
	return ds
}

// ParseNumber parses a numeric cell, tolerating thousands separators, currency
// symbols and percent suffixes.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ',', '$':
			return -1
		default:
			return r
		}
	}, s)
	if strings.HasSuffix(clean, "%") {
		v := strings.TrimSpace(strings.TrimSuffix(clean, "%"))
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f / 100.0, true
		}
		return 0, false
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
	"02-Jan-2006",
	"Jan 2, 2006",
}

// ParseTime parses a date cell. Bare numbers are read as Excel serial dates.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseCell(s string, kind Kind) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null
	}
	switch kind {
	case KindNumeric:
		if f, ok := ParseNumber(s); ok {
			return Number(f)
		}
		return Null
	case KindTime:
		if t, ok := ParseTime(s); ok {
			return Timestamp(t)
		}
		return Null
	default:
		return Text(s)
	}
}

func inferKind(rows [][]string, col int) Kind {
	for _, r := range rows {
		s := strings.TrimSpace(cell(r, col))
		if s == "" {
			continue
		}
		if _, ok := ParseNumber(s); !ok {
			return KindText
		}
	}
	return KindNumeric
}

// headerNames fills blank headers and de-duplicates repeated names.
func headerNames(header []string, rows [][]string) []string {
	width := len(header)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := strings.TrimSpace(cell(header, i))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

func cell(r []string, i int) string {
	if i < len(r) {
		return r[i]
	}
	return ""
}

func blank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
