package operations

import (
	"context"

	"socsync/internal/dataprocessing"
	"socsync/internal/files"
	"socsync/pkg/contracts/domain"
)

// Workspace owns the run's working directory
type Workspace interface {
	EnsureWorkDir() error
	RemoveWorkDir() error
}

// Acquirer exports the report from the portal. Close is always called.
type Acquirer interface {
	Run(ctx context.Context, downloadDir string) (*domain.DownloadArtifact, error)
	Close() error
}

// AcquirerFactory returns a fresh Acquirer for each run
type AcquirerFactory func() Acquirer

// ArchiveMaterializer moves a download to its canonical archive path
type ArchiveMaterializer interface {
	Materialize(src string) (*domain.CanonicalArchive, error)
}

// ArchiveExtractor unpacks an archive into a scoped extraction directory
type ArchiveExtractor interface {
	Open(archivePath, workDir string) (*files.Extraction, error)
}

// DatasetNormalizer merges tables into the published dataset
type DatasetNormalizer interface {
	Normalize(ctx context.Context, paths []string) (*dataprocessing.Dataset, error)
}

// DatasetPublisher replaces a sheet's contents with a dataset
type DatasetPublisher interface {
	Publish(ctx context.Context, ds *dataprocessing.Dataset, sheetName string) error
}

// DatasetWriter writes a local copy of a dataset
type DatasetWriter interface {
	WriteDataset(path string, ds *dataprocessing.Dataset) error
}
