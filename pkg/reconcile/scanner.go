package reconcile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/errors"
	"github.com/centy-io/centy-daemon/pkg/hashing"
	"github.com/centy-io/centy-daemon/pkg/manifest"
)

// ScanEntry is one file or directory observed on disk inside .centy.
// Directory paths carry a trailing slash; directories have no hash.
type ScanEntry struct {
	Path  string
	IsDir bool
	Hash  string
}

// Scan reads the actual on-disk state of a project's .centy subtree:
// relative paths and current content hashes. The manifest document itself
// and in-flight temporary files are not part of the managed surface.
// A missing .centy directory yields an empty result, not an error.
func Scan(projectPath string) (map[string]ScanEntry, error) {
	root := manifest.CentyPath(projectPath)
	entries := make(map[string]ScanEntry)

	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, errors.WrapIO("stat", root, err)
	}

	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if osPathname == root {
				return nil
			}

			rel, err := filepath.Rel(root, osPathname)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			name := filepath.Base(osPathname)
			if name == constants.ManifestFile || strings.Contains(name, ".tmp-") {
				return nil
			}

			if de.IsDir() {
				entries[rel+"/"] = ScanEntry{Path: rel + "/", IsDir: true}
				return nil
			}

			hash, err := hashing.DigestFile(osPathname)
			if err != nil {
				return err
			}
			entries[rel] = ScanEntry{Path: rel, Hash: hash}
			return nil
		},
	})
	if err != nil {
		return nil, errors.WrapIO("scan", root, err)
	}
	return entries, nil
}
