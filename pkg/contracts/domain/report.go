package domain

import (
	"time"
)

// ReportRequest describes the export the portal should generate
type ReportRequest struct {
	ExportType string `json:"export_type" validate:"required"`
	Profile    string `json:"profile" validate:"required"`
}

// DownloadArtifact is a file saved by the browser under its suggested name
type DownloadArtifact struct {
	Path          string    `json:"path"`
	SuggestedName string    `json:"suggested_name"`
	Size          int64     `json:"size"`
	CompletedAt   time.Time `json:"completed_at"`
}

// CanonicalArchive is the downloaded archive after it was renamed to the
// hour-bucketed name. At most one exists per hour of day.
type CanonicalArchive struct {
	Path string `json:"path"`
	Hour int    `json:"hour"`
}
