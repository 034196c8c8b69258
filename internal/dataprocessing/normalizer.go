package dataprocessing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"socsync/internal/errors"
)

// timestampLayouts are tried in order. Day comes before month in every
// ambiguous form.
var timestampLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"2.1.2006 15:04:05",
	"2/1/06 15:04:05",
	"2/1/06 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339,
}

// Normalizer merges tables into the published dataset
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger.With(slog.String("component", "normalizer"))}
}

// Normalize reads every table, concatenates the rows in input order and
// projects the required columns. A column missing from the merged header is
// a schema error; a timestamp that cannot be parsed is blanked.
func (n *Normalizer) Normalize(ctx context.Context, paths []string) (*Dataset, error) {
	tables := make([]*Table, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelledError("normalize", err)
		}

		table, err := ReadTable(path)
		if err != nil {
			return nil, err
		}
		if table.Header == nil {
			n.logger.WarnContext(ctx, "Table has no header row, skipping", slog.String("path", path))
			continue
		}

		n.logger.DebugContext(ctx, "Table read",
			slog.String("path", path),
			slog.Int("columns", len(table.Header)),
			slog.Int("rows", len(table.Rows)))
		tables = append(tables, table)
	}

	return n.NormalizeTables(ctx, tables)
}

// NormalizeTables is Normalize over tables already in memory
func (n *Normalizer) NormalizeTables(ctx context.Context, tables []*Table) (*Dataset, error) {
	merged := mergeTables(tables)

	n.logger.InfoContext(ctx, "Columns observed before projection",
		slog.Any("columns", merged.Header),
		slog.Int("tables", len(tables)),
		slog.Int("rows", len(merged.Rows)))

	index := make(map[string]int, len(merged.Header))
	for i, name := range merged.Header {
		index[name] = i
	}

	required := RequiredColumns()
	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		observed := append([]string{}, merged.Header...)
		return nil, errors.NewSchemaError("required columns absent from report", observed, missing)
	}

	ds := &Dataset{
		Header: required,
		Rows:   make([][]string, 0, len(merged.Rows)),
	}

	blanked := 0
	for _, row := range merged.Rows {
		out := make([]string, len(required))
		for i, name := range required {
			out[i] = row[index[name]]
		}

		raw := out[1]
		out[1] = FormatTimestamp(raw)
		if out[1] == "" && strings.TrimSpace(raw) != "" {
			blanked++
		}
		ds.Rows = append(ds.Rows, out)
	}

	if blanked > 0 {
		n.logger.WarnContext(ctx, "Unparseable timestamps blanked",
			slog.String("column", ColumnSOCReceived),
			slog.Int("count", blanked))
	}

	return ds, nil
}

// mergeTables concatenates the rows of every table into the union of their
// headers. A column absent from a table yields empty cells for its rows.
func mergeTables(tables []*Table) *Table {
	merged := &Table{}
	index := make(map[string]int)

	for _, t := range tables {
		for _, name := range t.Header {
			if _, ok := index[name]; !ok {
				index[name] = len(merged.Header)
				merged.Header = append(merged.Header, name)
			}
		}
	}

	for _, t := range tables {
		positions := make([]int, len(t.Header))
		for i, name := range t.Header {
			positions[i] = index[name]
		}

		for _, row := range t.Rows {
			out := make([]string, len(merged.Header))
			for i, pos := range positions {
				if i < len(row) {
					out[pos] = row[i]
				}
			}
			merged.Rows = append(merged.Rows, out)
		}
	}

	return merged
}

// FormatTimestamp parses raw day-first and renders it as DD/MM/YYYY HH:MM:SS.
// It returns "" when raw is blank or matches no known layout.
func FormatTimestamp(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(TimestampLayout)
		}
	}

	return ""
}
