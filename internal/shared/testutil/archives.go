package testutil

import (
	"archive/zip"
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteZip writes a zip archive at path holding entries, name to content,
// in name order
func WriteZip(t testing.TB, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(entries[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}
