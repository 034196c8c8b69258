package exporter

import (
	"context"
	"log/slog"

	"socsync/internal/dataprocessing"
)

// ClientFactory opens an authenticated backend client
type ClientFactory func(ctx context.Context) (SheetsClient, error)

// PublisherConfig addresses the destination document
type PublisherConfig struct {
	SpreadsheetID    string
	DefaultRows      int64
	DefaultCols      int64
	ValueInputOption string
}

// Publisher replaces the contents of a sheet with a dataset
type Publisher struct {
	connect ClientFactory
	cfg     PublisherConfig
	logger  *slog.Logger
}

// NewPublisher creates a publisher. connect is only called for non-empty datasets.
func NewPublisher(connect ClientFactory, cfg PublisherConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ValueInputOption == "" {
		cfg.ValueInputOption = "USER_ENTERED"
	}
	return &Publisher{
		connect: connect,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "publisher")),
	}
}

// Publish clears sheetName and writes the dataset from A1, header included.
// An empty or nil dataset is logged and skipped without touching the backend.
func (p *Publisher) Publish(ctx context.Context, ds *dataprocessing.Dataset, sheetName string) error {
	if ds.Empty() {
		p.logger.WarnContext(ctx, "Dataset is empty, nothing to publish",
			slog.String("sheet", sheetName))
		return nil
	}

	client, err := p.connect(ctx)
	if err != nil {
		return err
	}

	sheet, err := client.FindSheet(ctx, p.cfg.SpreadsheetID, sheetName)
	if err != nil {
		return err
	}

	if sheet == nil {
		p.logger.InfoContext(ctx, "Sheet not found, creating it",
			slog.String("sheet", sheetName),
			slog.Int64("rows", p.cfg.DefaultRows),
			slog.Int64("cols", p.cfg.DefaultCols))

		if sheet, err = client.AddSheet(ctx, p.cfg.SpreadsheetID, sheetName, p.cfg.DefaultRows, p.cfg.DefaultCols); err != nil {
			return err
		}
	}

	values := toValues(ds)
	rows := int64(len(values))
	cols := int64(len(ds.Header))

	if rows > sheet.Rows || cols > sheet.Cols {
		newRows, newCols := max(rows, sheet.Rows), max(cols, sheet.Cols)
		p.logger.InfoContext(ctx, "Growing sheet grid",
			slog.String("sheet", sheetName),
			slog.Int64("rows", newRows),
			slog.Int64("cols", newCols))

		if err := client.ResizeSheet(ctx, p.cfg.SpreadsheetID, sheet, newRows, newCols); err != nil {
			return err
		}
	}

	if err := client.ClearSheet(ctx, p.cfg.SpreadsheetID, sheet.Title); err != nil {
		return err
	}

	if err := client.WriteValues(ctx, p.cfg.SpreadsheetID, sheet.Title, values, p.cfg.ValueInputOption); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "Dataset published",
		slog.String("spreadsheet_id", p.cfg.SpreadsheetID),
		slog.String("sheet", sheet.Title),
		slog.Int("rows", ds.Len()))

	return nil
}

// toValues renders the dataset as text cells, header first
func toValues(ds *dataprocessing.Dataset) [][]interface{} {
	grid := ds.Grid()
	values := make([][]interface{}, len(grid))
	for i, row := range grid {
		cells := make([]interface{}, len(ds.Header))
		for j := range cells {
			cells[j] = ""
			if j < len(row) {
				cells[j] = row[j]
			}
		}
		values[i] = cells
	}
	return values
}
