package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// FindTables lists the regular files directly inside dir whose name ends in
// one of suffixes, compared case-insensitively. Entries come back in
// directory listing order.
func FindTables(dir string, suffixes []string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !HasTabularSuffix(entry.Name(), suffixes) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return files, nil
}

// HasTabularSuffix reports whether name ends in one of suffixes, ignoring case
func HasTabularSuffix(name string, suffixes []string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}
