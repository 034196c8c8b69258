package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"socsync/internal/config"
	"socsync/internal/errors"
	"socsync/pkg/contracts/domain"
)

// Manager materializes downloaded artifacts into the work directory
type Manager struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewManager creates a new file manager rooted at dir
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:    dir,
		now:    time.Now,
		logger: logger.With(slog.String("component", "materializer")),
	}
}

// CanonicalPath returns the hour-bucketed archive path for t
func (m *Manager) CanonicalPath(t time.Time) string {
	return filepath.Join(m.dir, config.ArchiveName(t))
}

// Materialize moves src to the canonical archive path for the current hour.
// A file already at that path is deleted first. Runs within the same hour
// therefore overwrite each other.
func (m *Manager) Materialize(src string) (*domain.CanonicalArchive, error) {
	now := m.now()
	dst := m.CanonicalPath(now)

	if _, err := os.Stat(src); err != nil {
		return nil, errors.NewFileOperationError("materialize", src, err)
	}

	archive := &domain.CanonicalArchive{Path: dst, Hour: now.Hour()}

	if samePath(src, dst) {
		m.logger.Info("Artifact already at canonical path", slog.String("path", dst))
		return archive, nil
	}

	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return nil, errors.NewFileOperationError("materialize", dst, err)
	}

	if err := m.MoveFile(src, dst); err != nil {
		return nil, errors.NewFileOperationError("materialize", src, err)
	}

	m.logger.Info("Materialized archive",
		slog.String("src", src),
		slog.String("dst", dst),
		slog.Int("hour", archive.Hour))

	return archive, nil
}

// CopyFile copies a file from source to destination
func (m *Manager) CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	return dstFile.Sync()
}

// MoveFile moves a file from source to destination
func (m *Manager) MoveFile(src, dst string) error {
	m.logger.Debug("Moving file",
		slog.String("src", src),
		slog.String("dst", dst))

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	// Try rename first (atomic if on same filesystem)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// Fall back to copy and delete
	if err := m.CopyFile(src, dst); err != nil {
		os.Remove(dst)
		return err
	}

	return os.Remove(src)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
