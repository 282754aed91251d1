// Package manifest defines the persisted registry of managed files for a
// project and the store that loads and persists it. The manifest is the
// engine's memory of what it last wrote: every entry's hash reflects
// content written by the engine itself, never an externally edited value,
// which is what lets the plan builder tell user edits apart from template
// drift.
package manifest

import (
	"github.com/agentstation/utc"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/errors"
)

// FileKind identifies what a managed file is, as a closed set of variants
// dispatched through the reconciliation decision table. The kind
// determines which template lookup applies and whether local edits are
// expected for the file.
type FileKind string

// Managed file kinds.
const (
	KindReadme        FileKind = "readme"
	KindConfig        FileKind = "config"
	KindIssueBody     FileKind = "issue-body"
	KindIssueMetadata FileKind = "issue-metadata"
	KindDoc           FileKind = "doc"
	KindAsset         FileKind = "asset"
	KindDirectory     FileKind = "directory"
)

// String returns the string representation of a file kind.
func (k FileKind) String() string {
	return string(k)
}

// IsDirectory reports whether the kind names a directory rather than a file.
func (k FileKind) IsDirectory() bool {
	return k == KindDirectory
}

// Entry is one managed file in the manifest. Path is relative to the
// project's .centy directory and is the unique key.
type Entry struct {
	Path      string   `json:"path"`
	Kind      FileKind `json:"kind"`
	Hash      string   `json:"hash"`
	UpdatedAt utc.Time `json:"updatedAt"`
}

// NewEntry creates a manifest entry stamped with the current time.
func NewEntry(path string, kind FileKind, hash string) Entry {
	return Entry{
		Path:      path,
		Kind:      kind,
		Hash:      hash,
		UpdatedAt: utc.Now(),
	}
}

// Manifest is the tracked-file registry for one project. Entries keep
// their first-tracked order; the order carries no semantics and exists
// only for stable display.
type Manifest struct {
	SchemaVersion int      `json:"schemaVersion"`
	CentyVersion  string   `json:"centyVersion"`
	CreatedAt     utc.Time `json:"createdAt"`
	UpdatedAt     utc.Time `json:"updatedAt"`
	ManagedFiles  []Entry  `json:"managedFiles"`
}

// New creates a new empty manifest.
func New() *Manifest {
	now := utc.Now()
	return &Manifest{
		SchemaVersion: constants.ManifestSchemaVersion,
		CentyVersion:  constants.Version,
		CreatedAt:     now,
		UpdatedAt:     now,
		ManagedFiles:  []Entry{},
	}
}

// Find returns the entry for the given path, or nil if untracked.
func (m *Manifest) Find(path string) *Entry {
	for i := range m.ManagedFiles {
		if m.ManagedFiles[i].Path == path {
			return &m.ManagedFiles[i]
		}
	}
	return nil
}

// Upsert adds or updates an entry. An existing entry keeps its position
// so first-tracked order is preserved.
func (m *Manifest) Upsert(entry Entry) {
	for i := range m.ManagedFiles {
		if m.ManagedFiles[i].Path == entry.Path {
			m.ManagedFiles[i] = entry
			m.UpdatedAt = utc.Now()
			return
		}
	}
	m.ManagedFiles = append(m.ManagedFiles, entry)
	m.UpdatedAt = utc.Now()
}

// Remove deletes the entry for the given path, reporting whether it existed.
func (m *Manifest) Remove(path string) bool {
	for i := range m.ManagedFiles {
		if m.ManagedFiles[i].Path == path {
			m.ManagedFiles = append(m.ManagedFiles[:i], m.ManagedFiles[i+1:]...)
			m.UpdatedAt = utc.Now()
			return true
		}
	}
	return false
}

// Len returns the number of managed entries.
func (m *Manifest) Len() int {
	return len(m.ManagedFiles)
}

// Validate checks manifest invariants: a supported schema version and
// unique, relative entry paths.
func (m *Manifest) Validate() error {
	if m.SchemaVersion < 1 || m.SchemaVersion > constants.ManifestSchemaVersion {
		return errors.NewValidationError("schemaVersion", m.SchemaVersion, "unsupported schema version")
	}
	seen := make(map[string]struct{}, len(m.ManagedFiles))
	for _, e := range m.ManagedFiles {
		if e.Path == "" {
			return errors.NewValidationError("path", e.Path, "entry path must not be empty")
		}
		if e.Path[0] == '/' {
			return errors.NewValidationError("path", e.Path, "entry path must be relative")
		}
		if _, dup := seen[e.Path]; dup {
			return errors.NewValidationError("path", e.Path, "duplicate entry path")
		}
		seen[e.Path] = struct{}{}
	}
	return nil
}
