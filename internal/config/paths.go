package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"socsync/internal/errors"
)

// Paths contains every file system location a run touches.
// All of it lives under WorkDir so a single removal cleans up a run.
type Paths struct {
	WorkDir         string
	DownloadDir     string
	ExtractDir      string
	CredentialsFile string
	SnapshotFile    string
}

// ResolvePaths turns the configured locations into absolute paths
func (c *Config) ResolvePaths() (*Paths, error) {
	workDir, err := filepath.Abs(c.Paths.WorkDir)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("invalid work dir %q", c.Paths.WorkDir), err)
	}

	credentials, err := filepath.Abs(c.Sheets.CredentialsFile)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("invalid credentials path %q", c.Sheets.CredentialsFile), err)
	}

	var snapshot string
	if c.Paths.SnapshotFile != "" {
		if snapshot, err = filepath.Abs(c.Paths.SnapshotFile); err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("invalid snapshot path %q", c.Paths.SnapshotFile), err)
		}
	}

	return &Paths{
		WorkDir:         workDir,
		DownloadDir:     workDir,
		ExtractDir:      filepath.Join(workDir, ExtractDirName),
		CredentialsFile: credentials,
		SnapshotFile:    snapshot,
	}, nil
}

// EnsureWorkDir creates the working directory if it doesn't exist
func (p *Paths) EnsureWorkDir() error {
	if err := os.MkdirAll(p.WorkDir, 0755); err != nil {
		return errors.NewFileOperationError("ensure_work_dir", p.WorkDir, err)
	}
	slog.Debug("Ensured directory exists", slog.String("directory", p.WorkDir))
	return nil
}

// RemoveWorkDir deletes the working directory and everything below it
func (p *Paths) RemoveWorkDir() error {
	if err := os.RemoveAll(p.WorkDir); err != nil {
		return errors.NewFileOperationError("remove_work_dir", p.WorkDir, err)
	}
	return nil
}

// ArchiveName returns the canonical archive file name for the hour of t
func ArchiveName(t time.Time) string {
	return fmt.Sprintf(ArchiveNameFormat, t.Hour())
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
