package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"socsync/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTable reads a tabular file, choosing the format from its suffix
func ReadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, errors.New(errors.KindSchema, "read_table",
			fmt.Sprintf("unsupported table format %s", filepath.Base(path)), nil).
			WithContext("path", path)
	}
}

// ReadCSV reads a comma separated UTF-8 file whose first record is the header
func ReadCSV(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileOperationError("read_table", path, err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errors.New(errors.KindSchema, "read_table",
			fmt.Sprintf("%s is not valid UTF-8", filepath.Base(path)), nil).
			WithContext("path", path)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	table := &Table{Source: path}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(errors.KindSchema, "read_table",
				fmt.Sprintf("malformed CSV in %s", filepath.Base(path)), err).
				WithContext("path", path)
		}

		if table.Header == nil {
			table.Header = dedupeHeader(record)
			continue
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

// ReadXLSX reads the first worksheet of an Excel workbook. Cells are read
// without number formatting; date serials in the SOC received column are
// rendered in TimestampLayout.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.New(errors.KindSchema, "read_table",
			fmt.Sprintf("cannot open workbook %s", filepath.Base(path)), err).
			WithContext("path", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{Source: path}, nil
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.New(errors.KindSchema, "read_table",
			fmt.Sprintf("cannot read sheet %q of %s", sheets[0], filepath.Base(path)), err).
			WithContext("path", path)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	table := &Table{Source: path}
	dateCol := -1
	for _, row := range rows {
		if table.Header == nil {
			if isBlankRow(row) {
				continue
			}
			table.Header = dedupeHeader(row)
			dateCol = indexOf(table.Header, ColumnSOCReceived)
			continue
		}
		if dateCol >= 0 && dateCol < len(row) {
			row[dateCol] = excelTimestamp(row[dateCol], date1904)
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// excelTimestamp renders a date serial in TimestampLayout. Anything that is
// not a positive number is returned unchanged.
func excelTimestamp(raw string, date1904 bool) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial <= 0 {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return raw
	}
	return t.Round(time.Second).Format(TimestampLayout)
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// dedupeHeader suffixes repeated column names with .1, .2 and so on so
// every name maps to a single index.
func dedupeHeader(record []string) []string {
	header := make([]string, len(record))
	seen := make(map[string]int, len(record))
	for i, name := range record {
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			header[i] = fmt.Sprintf("%s.%d", name, n+1)
			continue
		}
		seen[name] = 0
		header[i] = name
	}
	return header
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
