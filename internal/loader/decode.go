package loader

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when the content is not a spreadsheet.
	ErrUnsupportedFormat = errors.New("loader: unsupported format")
	// ErrEmpty is returned when the first sheet has no header row.
	ErrEmpty = errors.New("loader: no data in first sheet")
)

// Format is a spreadsheet container format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// maxXLSCells bounds legacy workbook reads.
const maxXLSCells = 1_000_000

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectFormat picks the format from the file extension and falls back to
// sniffing the content.
func DetectFormat(name string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	}
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, ole2Magic):
		return FormatXLS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Decode reads the first sheet of a workbook and splits off the header row.
func Decode(name string, data []byte) (Format, []string, [][]string, error) {
	format, err := DetectFormat(name, data)
	if err != nil {
		return "", nil, nil, err
	}
	var rows [][]string
	switch format {
	case FormatXLS:
		rows, err = readXLS(data)
	default:
		rows, err = readXLSX(data)
	}
	if err != nil {
		return format, nil, nil, err
	}
	if len(rows) == 0 {
		return format, nil, nil, ErrEmpty
	}
	return format, rows[0], rows[1:], nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx: %v", ErrUnsupportedFormat, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmpty
	}
	// Raw values keep numbers and date serials unformatted for type inference.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("loader: read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: xls: %v", ErrUnsupportedFormat, err)
	}
	// OpenReader returns a nil workbook when the container has no Workbook stream.
	if wb == nil {
		return nil, fmt.Errorf("%w: xls: no workbook stream", ErrUnsupportedFormat)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrEmpty
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmpty
	}
	var rows [][]string
	cells := 0
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		line := make([]string, 0, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			for len(line) < j {
				line = append(line, "")
			}
			line = append(line, row.Col(j))
		}
		cells += len(line)
		if cells > maxXLSCells {
			return nil, fmt.Errorf("%w: more than %d cells", ErrTooLarge, maxXLSCells)
		}
		rows = append(rows, line)
	}
	return rows, nil
}

// xlsRow returns row i or nil when the sheet has no record for it.
// WorkSheet.Row dereferences the missing row and panics in that case.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
