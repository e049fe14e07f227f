package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestExpandExtractsFiles(t *testing.T) {
	zipPath := buildTestZip(t, map[string]string{
		"data/a.txt": "hello",
		"data/b.txt": "world",
	})
	scratch := t.TempDir()

	extracted, err := Expand(zipPath, scratch)
	require.NoError(t, err)
	assert.Len(t, extracted, 2)

	content, err := os.ReadFile(filepath.Join(scratch, "data", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestExpandStripsDenylistedEntries(t *testing.T) {
	zipPath := buildTestZip(t, map[string]string{
		"data/a.txt":             "hello",
		"__MACOSX/._a.txt":       "junk",
		"data/.DS_Store":         "junk",
		"data/notes.txt.bak":     "junk",
		"data/~$locked.xlsx":     "junk",
	})
	scratch := t.TempDir()

	extracted, err := Expand(zipPath, scratch)
	require.NoError(t, err)
	assert.Len(t, extracted, 1)
	assert.Contains(t, extracted[0], "a.txt")
}

func TestExpandRejectsArchiveTraversal(t *testing.T) {
	zipPath := buildTestZip(t, map[string]string{
		"../../etc/passwd": "pwned",
	})
	scratch := t.TempDir()

	_, err := Expand(zipPath, scratch)
	require.Error(t, err)
}

func TestExpandDeterministicOrder(t *testing.T) {
	zipPath := buildTestZip(t, map[string]string{
		"z.txt": "1",
		"a.txt": "2",
		"m.txt": "3",
	})
	scratch := t.TempDir()

	extracted, err := Expand(zipPath, scratch)
	require.NoError(t, err)
	require.Len(t, extracted, 3)
	assert.Contains(t, extracted[0], "a.txt")
	assert.Contains(t, extracted[1], "m.txt")
	assert.Contains(t, extracted[2], "z.txt")
}
