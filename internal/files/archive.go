package files

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"socsync/internal/config"
	"socsync/internal/errors"
)

// DefaultTabularSuffixes are the table formats the normalizer can read
var DefaultTabularSuffixes = []string{".csv", ".xlsx"}

// Extractor unpacks report archives into a scratch directory
type Extractor struct {
	suffixes []string
	logger   *slog.Logger
}

// NewExtractor creates an extractor recognising the given tabular suffixes
func NewExtractor(suffixes []string, logger *slog.Logger) *Extractor {
	if len(suffixes) == 0 {
		suffixes = DefaultTabularSuffixes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		suffixes: suffixes,
		logger:   logger.With(slog.String("component", "extractor")),
	}
}

// Extraction is the scoped result of unpacking an archive. The owner must
// call Close once the tables have been read.
type Extraction struct {
	Dir    string
	Tables []string

	once   sync.Once
	logger *slog.Logger
}

// Empty reports whether the archive held no tabular files
func (e *Extraction) Empty() bool {
	return e == nil || len(e.Tables) == 0
}

// Close removes the extraction directory. It is safe to call more than once
// and tolerates a directory that is already gone.
func (e *Extraction) Close() error {
	if e == nil {
		return nil
	}
	var err error
	e.once.Do(func() {
		if e.Dir == "" {
			return
		}
		if rmErr := os.RemoveAll(e.Dir); rmErr != nil {
			err = errors.NewFileOperationError("release_extraction", e.Dir, rmErr)
			return
		}
		if e.logger != nil {
			e.logger.Debug("Released extraction directory", slog.String("dir", e.Dir))
		}
	})
	return err
}

// Open unpacks archivePath into workDir/extracted_files and lists the tabular
// files found at its top level. An archive without tables yields an empty,
// already released Extraction rather than an error.
func (x *Extractor) Open(archivePath, workDir string) (*Extraction, error) {
	dir := filepath.Join(workDir, config.ExtractDirName)

	// Leftovers of an interrupted run must not leak into this one.
	if err := os.RemoveAll(dir); err != nil {
		return nil, errors.NewFileOperationError("extract", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewFileOperationError("extract", dir, err)
	}

	ext := &Extraction{Dir: dir, logger: x.logger}

	entries, err := unzip(archivePath, dir)
	if err != nil {
		ext.Close()
		return nil, err
	}

	tables, err := FindTables(dir, x.suffixes)
	if err != nil {
		ext.Close()
		return nil, errors.NewFileOperationError("extract", dir, err)
	}

	for _, table := range tables {
		ext.Tables = append(ext.Tables, table.Path)
	}

	x.logger.Info("Archive extracted",
		slog.String("archive", archivePath),
		slog.Int("entries", entries),
		slog.Int("tables", len(ext.Tables)))

	if len(ext.Tables) == 0 {
		x.logger.Warn("Archive contains no tabular files", slog.String("archive", archivePath))
		if err := ext.Close(); err != nil {
			return nil, err
		}
	}

	return ext, nil
}

// unzip writes every entry of the archive below dir and returns the entry count
func unzip(archivePath, dir string) (int, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, errors.NewArchiveError(archivePath, err)
	}
	defer reader.Close()

	base := filepath.Clean(dir)
	root := base + string(os.PathSeparator)

	for _, f := range reader.File {
		target := filepath.Join(dir, f.Name)
		if target != base && !strings.HasPrefix(target, root) {
			return 0, errors.NewArchiveError(archivePath, fmt.Errorf("entry %q escapes extraction directory", f.Name))
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return 0, errors.NewFileOperationError("extract", target, err)
			}
			continue
		}

		if err := writeEntry(f, target); err != nil {
			return 0, err
		}
	}

	return len(reader.File), nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.NewFileOperationError("extract", target, err)
	}

	src, err := f.Open()
	if err != nil {
		return errors.NewArchiveError(f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.NewFileOperationError("extract", target, err)
	}
	defer dst.Close()

	// Checksum and truncation errors surface here.
	if _, err := io.Copy(dst, src); err != nil {
		return errors.NewArchiveError(f.Name, err)
	}

	return nil
}
