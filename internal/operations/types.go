package operations

import (
	"time"

	"socsync/pkg/contracts/domain"
)

// Step identifiers
const (
	StageIDWorkspace   = "workspace"
	StageIDAcquire     = "acquire"
	StageIDMaterialize = "materialize"
	StageIDExtract     = "extract"
	StageIDNormalize   = "normalize"
	StageIDSnapshot    = "snapshot"
	StageIDPublish     = "publish"
)

// Step names
const (
	StageNameWorkspace   = "Prepare Workspace"
	StageNameAcquire     = "Export Report"
	StageNameMaterialize = "Store Archive"
	StageNameExtract     = "Extract Archive"
	StageNameNormalize   = "Normalize Dataset"
	StageNameSnapshot    = "Write Snapshot"
	StageNamePublish     = "Publish Sheet"
)

// Context keys for values passed between steps
const (
	ContextKeyDownload   = "download"
	ContextKeyArchive    = "archive"
	ContextKeyExtraction = "extraction"
	ContextKeyTables     = "tables"
	ContextKeyDataset    = "dataset"
	ContextKeyRows       = "rows"
	ContextKeyPublished  = "published_rows"
)

// Triggers
const (
	TriggerCLI      = "cli"
	TriggerSchedule = "schedule"
)

// DefaultCleanupTimeout bounds the teardown of a run
const DefaultCleanupTimeout = 30 * time.Second

// RunRequest starts one pipeline run
type RunRequest struct {
	ID      string `json:"id,omitempty"`
	Trigger string `json:"trigger,omitempty"`
}

// RunResponse is the outcome of a run
type RunResponse struct {
	domain.RunReport
}
