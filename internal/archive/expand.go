// =============================================================================
// rdeconv - Archive Expander Module
// =============================================================================
//
// Expands a single .zip archive into a scratch directory, stripping OS and
// tooling noise (the SystemFilesCleaner deny-list) and refusing any entry
// whose resolved path would escape the scratch directory (zip slip).
// Entries are processed in lexicographic order by in-archive path so
// expansion is deterministic regardless of the archive's internal entry
// order.
//
// =============================================================================

package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
)

// denyPatterns lists path components/suffixes stripped from every
// expanded archive: platform metadata, editor/VCS/cache noise, and Office
// lock files.
var denyPatterns = []string{
	"__MACOSX",
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	".git",
	".idea",
	"__pycache__",
	".ipynb_checkpoints",
}

var denySuffixes = []string{".bak", ".swp"}

// isDenied reports whether name (a path component, not a full path)
// matches the SystemFilesCleaner deny-list.
func isDenied(name string) bool {
	for _, p := range denyPatterns {
		if name == p {
			return true
		}
	}
	if strings.HasPrefix(name, "~$") {
		return true
	}
	for _, suf := range denySuffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}

func pathIsDenied(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if isDenied(part) {
			return true
		}
	}
	return false
}

// Expand extracts zipPath into scratchDir, returning the list of
// extracted file paths (directories excluded) in lexicographic order.
func Expand(zipPath, scratchDir string) ([]string, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, &rdeerr.IOError{Path: zipPath, Op: "open archive", Err: err}
	}
	defer reader.Close()

	entries := make([]*zip.File, len(reader.File))
	copy(entries, reader.File)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, &rdeerr.IOError{Path: scratchDir, Op: "create scratch dir", Err: err}
	}

	var extracted []string
	for _, entry := range entries {
		if pathIsDenied(entry.Name) {
			continue
		}

		destPath, err := safeJoin(scratchDir, entry.Name)
		if err != nil {
			return nil, err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return nil, &rdeerr.IOError{Path: destPath, Op: "create directory", Err: err}
			}
			continue
		}

		if err := extractEntry(entry, destPath); err != nil {
			return nil, err
		}
		extracted = append(extracted, destPath)
	}

	sort.Strings(extracted)
	return extracted, nil
}

// safeJoin joins base and rel, refusing to produce a path outside base
// (zip-slip / archive-traversal protection).
func safeJoin(base, rel string) (string, error) {
	joined := filepath.Join(base, rel)
	cleanBase := filepath.Clean(base)
	if joined != cleanBase && !strings.HasPrefix(joined, cleanBase+string(os.PathSeparator)) {
		return "", &rdeerr.IOError{Path: rel, Op: "expand", Err: fmt.Errorf("archive entry escapes scratch directory")}
	}
	return joined, nil
}

func extractEntry(entry *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return &rdeerr.IOError{Path: destPath, Op: "create parent dir", Err: err}
	}

	src, err := entry.Open()
	if err != nil {
		return &rdeerr.IOError{Path: entry.Name, Op: "open archive entry", Err: err}
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, entry.Mode())
	if err != nil {
		return &rdeerr.IOError{Path: destPath, Op: "create extracted file", Err: err}
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return &rdeerr.IOError{Path: destPath, Op: "write extracted file", Err: err}
	}
	return nil
}
