package operations

import (
	"context"
	"fmt"
	"log/slog"

	"socsync/internal/dataprocessing"
	"socsync/internal/errors"
	"socsync/internal/files"
	"socsync/pkg/contracts/domain"
)

// WorkspaceStep creates the work directory and removes it at teardown
type WorkspaceStep struct {
	BaseStage
	workspace Workspace
}

// NewWorkspaceStep creates the workspace step
func NewWorkspaceStep(ws Workspace) *WorkspaceStep {
	return &WorkspaceStep{
		BaseStage: NewBaseStage(StageIDWorkspace, StageNameWorkspace),
		workspace: ws,
	}
}

// Execute implements Step
func (s *WorkspaceStep) Execute(ctx context.Context, state *OperationState) error {
	if err := s.workspace.EnsureWorkDir(); err != nil {
		return err
	}
	state.AddCleanup("workspace", func(context.Context) error {
		return s.workspace.RemoveWorkDir()
	})
	return nil
}

// AcquireStep drives the portal and downloads the report archive
type AcquireStep struct {
	BaseStage
	newAcquirer AcquirerFactory
	downloadDir string
}

// NewAcquireStep creates the acquire step
func NewAcquireStep(factory AcquirerFactory, downloadDir string) *AcquireStep {
	return &AcquireStep{
		BaseStage:   NewBaseStage(StageIDAcquire, StageNameAcquire),
		newAcquirer: factory,
		downloadDir: downloadDir,
	}
}

// Execute implements Step
func (s *AcquireStep) Execute(ctx context.Context, state *OperationState) error {
	acquirer := s.newAcquirer()
	state.AddCleanup("browser", func(context.Context) error {
		return acquirer.Close()
	})

	artifact, err := acquirer.Run(ctx, s.downloadDir)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyDownload, artifact)
	return nil
}

// MaterializeStep moves the download to its canonical archive name
type MaterializeStep struct {
	BaseStage
	materializer ArchiveMaterializer
}

// NewMaterializeStep creates the materialize step
func NewMaterializeStep(m ArchiveMaterializer) *MaterializeStep {
	return &MaterializeStep{
		BaseStage:    NewBaseStage(StageIDMaterialize, StageNameMaterialize),
		materializer: m,
	}
}

// Execute implements Step
func (s *MaterializeStep) Execute(ctx context.Context, state *OperationState) error {
	artifact, err := contextValue[*domain.DownloadArtifact](state, ContextKeyDownload, s.ID())
	if err != nil {
		return err
	}
	archive, err := s.materializer.Materialize(artifact.Path)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyArchive, archive)
	return nil
}

// ExtractStep unpacks the archive. An archive without tables halts the run.
type ExtractStep struct {
	BaseStage
	extractor ArchiveExtractor
	workDir   string
	logger    *slog.Logger
}

// NewExtractStep creates the extract step
func NewExtractStep(x ArchiveExtractor, workDir string, logger *slog.Logger) *ExtractStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStep{
		BaseStage: NewBaseStage(StageIDExtract, StageNameExtract),
		extractor: x,
		workDir:   workDir,
		logger:    logger,
	}
}

// Execute implements Step
func (s *ExtractStep) Execute(ctx context.Context, state *OperationState) error {
	archive, err := contextValue[*domain.CanonicalArchive](state, ContextKeyArchive, s.ID())
	if err != nil {
		return err
	}

	ext, err := s.extractor.Open(archive.Path, s.workDir)
	if err != nil {
		return err
	}
	state.AddCleanup("extraction", func(context.Context) error {
		return ext.Close()
	})
	state.SetContext(ContextKeyTables, len(ext.Tables))

	if ext.Empty() {
		s.logger.WarnContext(ctx, "Report archive has no tabular files, nothing to publish",
			slog.String("archive", archive.Path))
		state.Halt("archive contains no tabular files")
		return nil
	}
	state.SetContext(ContextKeyExtraction, ext)
	return nil
}

// NormalizeStep reads the extracted tables into the published dataset and
// releases the extraction directory
type NormalizeStep struct {
	BaseStage
	normalizer DatasetNormalizer
}

// NewNormalizeStep creates the normalize step
func NewNormalizeStep(n DatasetNormalizer) *NormalizeStep {
	return &NormalizeStep{
		BaseStage:  NewBaseStage(StageIDNormalize, StageNameNormalize),
		normalizer: n,
	}
}

// Execute implements Step
func (s *NormalizeStep) Execute(ctx context.Context, state *OperationState) error {
	ext, err := contextValue[*files.Extraction](state, ContextKeyExtraction, s.ID())
	if err != nil {
		return err
	}

	ds, err := s.normalizer.Normalize(ctx, ext.Tables)
	// Tables are in memory now, or unreadable; either way the directory can go.
	_ = ext.Close()
	if err != nil {
		return err
	}

	state.SetContext(ContextKeyDataset, ds)
	state.SetContext(ContextKeyRows, ds.Len())
	return nil
}

// SnapshotStep writes the dataset to a local CSV when a path is configured
type SnapshotStep struct {
	BaseStage
	writer DatasetWriter
	path   string
}

// NewSnapshotStep creates the snapshot step. An empty path disables it.
func NewSnapshotStep(w DatasetWriter, path string) *SnapshotStep {
	return &SnapshotStep{
		BaseStage: NewBaseStage(StageIDSnapshot, StageNameSnapshot),
		writer:    w,
		path:      path,
	}
}

// Execute implements Step
func (s *SnapshotStep) Execute(ctx context.Context, state *OperationState) error {
	if s.path == "" {
		return nil
	}
	ds, err := contextValue[*dataprocessing.Dataset](state, ContextKeyDataset, s.ID())
	if err != nil {
		return err
	}
	return s.writer.WriteDataset(s.path, ds)
}

// PublishStep replaces the destination sheet with the dataset
type PublishStep struct {
	BaseStage
	publisher DatasetPublisher
	sheetName string
}

// NewPublishStep creates the publish step
func NewPublishStep(p DatasetPublisher, sheetName string) *PublishStep {
	return &PublishStep{
		BaseStage: NewBaseStage(StageIDPublish, StageNamePublish),
		publisher: p,
		sheetName: sheetName,
	}
}

// Execute implements Step
func (s *PublishStep) Execute(ctx context.Context, state *OperationState) error {
	ds, err := contextValue[*dataprocessing.Dataset](state, ContextKeyDataset, s.ID())
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, ds, s.sheetName); err != nil {
		return err
	}
	state.SetContext(ContextKeyPublished, ds.Len())
	return nil
}

// contextValue fetches a typed value a previous step stored in state
func contextValue[T any](state *OperationState, key, stepID string) (T, error) {
	var zero T
	v, ok := state.GetContext(key)
	if !ok {
		return zero, errors.New(errors.KindUnknown, stepID, fmt.Sprintf("missing %s from a previous step", key), nil)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errors.New(errors.KindUnknown, stepID, fmt.Sprintf("unexpected type %T for %s", v, key), nil)
	}
	return typed, nil
}
