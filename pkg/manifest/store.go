package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/errors"
)

// CentyPath returns the path to the project's .centy directory.
func CentyPath(projectPath string) string {
	return filepath.Join(projectPath, constants.CentyDir)
}

// Path returns the path to the manifest document for a project.
func Path(projectPath string) string {
	return filepath.Join(CentyPath(projectPath), constants.ManifestFile)
}

// Exists reports whether a manifest document exists for the project,
// i.e. whether the project has been initialized.
func Exists(projectPath string) bool {
	_, err := os.Stat(Path(projectPath))
	return err == nil
}

// Store loads and persists the manifest document for one project path.
// It owns the manifest for the duration of a reconciliation cycle; no
// other component touches the document directly.
type Store struct {
	projectPath string
}

// NewStore creates a store bound to a project path.
func NewStore(projectPath string) *Store {
	return &Store{projectPath: projectPath}
}

// ProjectPath returns the project path this store is bound to.
func (s *Store) ProjectPath() string {
	return s.projectPath
}

// Load reads the manifest document. It returns (nil, nil) when the
// project has no manifest yet, and a CorruptManifestError when a
// document exists but cannot be parsed or validated. A corrupt manifest
// is never repaired silently.
func (s *Store) Load() (*Manifest, error) {
	path := Path(s.projectPath)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapIO("read", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewCorruptManifestError(path, "parse failure", err)
	}
	if err := m.Validate(); err != nil {
		return nil, errors.NewCorruptManifestError(path, err.Error(), err)
	}
	return &m, nil
}

// LoadRequired reads the manifest and fails with NotInitialized when the
// project has none.
func (s *Store) LoadRequired() (*Manifest, error) {
	m, err := s.Load()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NewNotInitializedError(s.projectPath)
	}
	return m, nil
}

// Save persists the manifest atomically: write to a temporary file in
// the same directory, then rename over the target. A crash mid-write
// leaves the previous document intact, never a half-written one.
func (s *Store) Save(m *Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}

	dir := CentyPath(s.projectPath)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.WrapResource("encode", "manifest", s.projectPath, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, constants.ManifestFile+".tmp-*")
	if err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.WrapIO("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("close", tmpName, err)
	}

	target := Path(s.projectPath)
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("rename", target, err)
	}
	return nil
}
