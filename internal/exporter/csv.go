package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"socsync/internal/dataprocessing"
	"socsync/internal/errors"
)

// SnapshotWriter keeps a local CSV copy of the published dataset
type SnapshotWriter struct {
	logger *slog.Logger
}

// NewSnapshotWriter creates a new snapshot writer
func NewSnapshotWriter(logger *slog.Logger) *SnapshotWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWriter{logger: logger.With(slog.String("component", "snapshot"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file, replacing any previous content. The
// file is written next to its destination and renamed into place.
func (w *SnapshotWriter) WriteCSV(filePath string, options WriteOptions) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewFileOperationError("snapshot", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.csv")
	if err != nil {
		return errors.NewFileOperationError("snapshot", dir, err)
	}
	defer os.Remove(tmp.Name())

	if err := writeRecords(tmp, options); err != nil {
		tmp.Close()
		return errors.NewFileOperationError("snapshot", filePath, err)
	}

	if err := tmp.Close(); err != nil {
		return errors.NewFileOperationError("snapshot", filePath, err)
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return errors.NewFileOperationError("snapshot", filePath, err)
	}

	return nil
}

// WriteDataset writes the normalized dataset with its header
func (w *SnapshotWriter) WriteDataset(filePath string, ds *dataprocessing.Dataset) error {
	if ds == nil {
		return nil
	}
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   ds.Header,
		Records:   ds.Rows,
		BOMPrefix: true,
	})
}

func writeRecords(file *os.File, options WriteOptions) error {
	// BOM helps Excel recognize UTF-8
	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
