package files

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socsync/internal/config"
	"socsync/internal/errors"
	"socsync/internal/shared/testutil"
)

func TestExtractorOpen(t *testing.T) {
	workDir := t.TempDir()
	archive := filepath.Join(workDir, "TO-Packed10.zip")
	testutil.WriteZip(t, archive, map[string]string{
		"part1.csv":       "a,b\n1,2\n",
		"PART2.CSV":       "a,b\n3,4\n",
		"summary.xlsx":    "not really xlsx",
		"readme.txt":      "ignored",
		"nested/deep.csv": "not scanned",
	})

	x := NewExtractor(nil, quietLogger())
	ext, err := x.Open(archive, workDir)
	require.NoError(t, err)
	defer ext.Close()

	assert.False(t, ext.Empty())
	assert.Equal(t, filepath.Join(workDir, config.ExtractDirName), ext.Dir)

	names := make([]string, 0, len(ext.Tables))
	for _, table := range ext.Tables {
		names = append(names, filepath.Base(table))
		assert.FileExists(t, table)
	}
	assert.ElementsMatch(t, []string{"part1.csv", "PART2.CSV", "summary.xlsx"}, names)

	require.NoError(t, ext.Close())
	assert.NoDirExists(t, ext.Dir)

	// idempotent
	assert.NoError(t, ext.Close())
}

func TestExtractorNoTablesLeavesNoDirectory(t *testing.T) {
	workDir := t.TempDir()
	archive := filepath.Join(workDir, "empty.zip")
	testutil.WriteZip(t, archive, map[string]string{"notes.txt": "nothing here"})

	x := NewExtractor([]string{".csv"}, quietLogger())
	ext, err := x.Open(archive, workDir)
	require.NoError(t, err)

	assert.True(t, ext.Empty())
	assert.Empty(t, ext.Tables)
	assert.NoDirExists(t, filepath.Join(workDir, config.ExtractDirName))
}

func TestExtractorCorruptArchive(t *testing.T) {
	workDir := t.TempDir()
	archive := filepath.Join(workDir, "broken.zip")
	writeFile(t, archive, "this is not a zip archive")

	x := NewExtractor(nil, quietLogger())
	_, err := x.Open(archive, workDir)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindArchive))
	assert.NoDirExists(t, filepath.Join(workDir, config.ExtractDirName))
}

func TestExtractorMissingArchive(t *testing.T) {
	workDir := t.TempDir()

	x := NewExtractor(nil, quietLogger())
	_, err := x.Open(filepath.Join(workDir, "absent.zip"), workDir)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindArchive))
}

func TestExtractorRejectsEscapingEntries(t *testing.T) {
	workDir := t.TempDir()
	archive := filepath.Join(workDir, "slip.zip")
	testutil.WriteZip(t, archive, map[string]string{"../../escape.csv": "a\n1\n"})

	x := NewExtractor(nil, quietLogger())
	_, err := x.Open(archive, workDir)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindArchive))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(workDir), "escape.csv"))
	assert.NoDirExists(t, filepath.Join(workDir, config.ExtractDirName))
}

func TestExtractorAcceptsRootDirectoryEntry(t *testing.T) {
	workDir := t.TempDir()
	archive := filepath.Join(workDir, "dotted.zip")
	testutil.WriteZip(t, archive, map[string]string{
		"./":         "",
		"report.csv": "a,b\n1,2\n",
	})

	ext, err := NewExtractor(nil, quietLogger()).Open(archive, workDir)
	require.NoError(t, err)
	defer ext.Close()

	require.Len(t, ext.Tables, 1)
	assert.Equal(t, "report.csv", filepath.Base(ext.Tables[0]))
}

func TestExtractorClearsStaleDirectory(t *testing.T) {
	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, config.ExtractDirName, "stale.csv"), "old\n")

	archive := filepath.Join(workDir, "fresh.zip")
	testutil.WriteZip(t, archive, map[string]string{"fresh.csv": "new\n"})

	ext, err := NewExtractor(nil, quietLogger()).Open(archive, workDir)
	require.NoError(t, err)
	require.Len(t, ext.Tables, 1)
	assert.Equal(t, "fresh.csv", filepath.Base(ext.Tables[0]))
	assert.NoFileExists(t, filepath.Join(workDir, config.ExtractDirName, "stale.csv"))

	require.NoError(t, ext.Close())
	assert.NoDirExists(t, filepath.Join(workDir, config.ExtractDirName))
}

func TestHasTabularSuffix(t *testing.T) {
	suffixes := []string{".csv", ".xlsx"}

	assert.True(t, HasTabularSuffix("a.csv", suffixes))
	assert.True(t, HasTabularSuffix("A.CSV", suffixes))
	assert.True(t, HasTabularSuffix("b.XlSx", suffixes))
	assert.False(t, HasTabularSuffix("c.csv.bak", suffixes))
	assert.False(t, HasTabularSuffix("csv", suffixes))
	assert.False(t, HasTabularSuffix("d.txt", nil))
}

func TestFindTablesMissingDir(t *testing.T) {
	_, err := FindTables(filepath.Join(t.TempDir(), "absent"), DefaultTabularSuffixes)
	assert.Error(t, err)
}
