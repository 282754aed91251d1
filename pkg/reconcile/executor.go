package reconcile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/errors"
	"github.com/centy-io/centy-daemon/pkg/hashing"
	"github.com/centy-io/centy-daemon/pkg/logging"
	"github.com/centy-io/centy-daemon/pkg/manifest"
	"github.com/centy-io/centy-daemon/pkg/templates"
)

// OpResult records the outcome of a single executed operation.
type OpResult struct {
	Path     string        `json:"path"`
	Kind     OperationKind `json:"kind"`
	Decision Decision      `json:"decision,omitempty"`
	Applied  bool          `json:"applied"`
	Skipped  bool          `json:"skipped"`
	Stale    bool          `json:"stale,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// ExecutionReport summarizes one reconciliation run. A run with failed
// operations is not an error at the report level: every other operation
// still applied, and the manifest reflects exactly what succeeded.
type ExecutionReport struct {
	ProjectPath string             `json:"projectPath"`
	Results     []OpResult         `json:"results"`
	Applied     int                `json:"applied"`
	Skipped     int                `json:"skipped"`
	Failed      int                `json:"failed"`
	Manifest    *manifest.Manifest `json:"manifest"`
}

// executor applies one plan against one project. It is built fresh per
// run; the manifest it mutates is in-memory until the final persist.
type executor struct {
	projectPath string
	manifest    *manifest.Manifest
	provider    templates.Provider
	log         zerolog.Logger
}

// execute applies each operation in order, isolating failures per
// operation, then persists the accumulated manifest once. A disk write
// that succeeded but whose manifest entry was lost to a persist failure
// will surface as a conflict or adopt on the next plan rather than as
// corruption.
func (e *executor) execute(plan *Plan, decisions Decisions) (*ExecutionReport, error) {
	report := &ExecutionReport{
		ProjectPath: e.projectPath,
		Results:     make([]OpResult, 0, len(plan.Operations)),
	}

	dirty := false
	for _, op := range plan.Operations {
		res := e.apply(op, decisions.Get(op.Path))
		if res.Applied {
			report.Applied++
			dirty = true
		}
		if res.Skipped {
			report.Skipped++
		}
		if res.Error != "" {
			report.Failed++
			e.log.Warn().
				Str("path", op.Path).
				Str("kind", string(op.Kind)).
				Str("error", res.Error).
				Msg("reconcile operation failed")
		}
		report.Results = append(report.Results, res)
	}

	report.Manifest = e.manifest
	if dirty {
		store := manifest.NewStore(e.projectPath)
		if err := store.Save(e.manifest); err != nil {
			return report, err
		}
	}

	e.log.Info().
		Int("applied", report.Applied).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("reconciliation complete")
	return report, nil
}

// apply executes one operation. Every operation re-validates the disk
// state it is about to act on; a file that changed since the plan was
// generated is handled as if the plan had said conflict.
func (e *executor) apply(op Operation, decision Decision) OpResult {
	res := OpResult{Path: op.Path, Kind: op.Kind}

	switch op.Kind {
	case OpSkip:
		res.Skipped = true
		return res

	case OpCreate:
		return e.applyCreate(op, decision, res)

	case OpAutoUpdate:
		return e.applyAutoUpdate(op, decision, res)

	case OpConflict:
		res.Decision = decision
		return e.applyConflict(op, decision, res)

	case OpMissing:
		res.Decision = decision
		return e.applyMissing(op, decision, res)

	case OpAdopt:
		return e.applyAdopt(op, res)

	default:
		res.Error = "unknown operation kind"
		return res
	}
}

func (e *executor) applyCreate(op Operation, decision Decision, res OpResult) OpResult {
	if op.FileKind.IsDirectory() || strings.HasSuffix(op.Path, "/") {
		if err := os.MkdirAll(e.abs(op.Path), constants.DirPermissions); err != nil {
			res.Error = errors.WrapIO("create directory", op.Path, err).Error()
			return res
		}
		e.track(op.Path, op.FileKind, "")
		res.Applied = true
		return res
	}

	// A file that appeared since planning makes the plan stale; creating
	// over it would destroy content the plan never saw.
	_, exists, err := e.observe(op.Path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if exists {
		return e.resolveStale(op, decision, res)
	}

	content, ok := e.provider.Canonical(op.FileKind, op.Path)
	if !ok {
		res.Skipped = true
		return res
	}
	if err := e.write(op.Path, content); err != nil {
		res.Error = err.Error()
		return res
	}
	e.track(op.Path, op.FileKind, hashing.Digest(content))
	res.Applied = true
	return res
}

func (e *executor) applyAutoUpdate(op Operation, decision Decision, res OpResult) OpResult {
	observed, exists, err := e.observe(op.Path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	// The plan promised disk matched the manifest. If it no longer
	// does, a user edit raced the plan: the disk now presents the same
	// situation a conflict does, so resolve it that way.
	if !exists || observed != op.DiskHash {
		return e.resolveStale(op, decision, res)
	}

	content, ok := e.provider.Canonical(op.FileKind, op.Path)
	if !ok {
		res.Skipped = true
		return res
	}
	if err := e.write(op.Path, content); err != nil {
		res.Error = err.Error()
		return res
	}
	e.track(op.Path, op.FileKind, hashing.Digest(content))
	res.Applied = true
	return res
}

// resolveStale handles an operation whose on-disk state changed after
// planning. The disk now presents the same situation a conflict does, so
// a supplied decision is honored; with none the operation is skipped and
// resurfaces on the next plan.
func (e *executor) resolveStale(op Operation, decision Decision, res OpResult) OpResult {
	res.Stale = true
	res.Decision = decision
	out := e.applyConflict(op, decision, res)
	if out.Skipped {
		out.Reason = "stale-plan"
	}
	return out
}

func (e *executor) applyConflict(op Operation, decision Decision, res OpResult) OpResult {
	switch decision {
	case DecisionOverwrite:
		content, ok := e.provider.Canonical(op.FileKind, op.Path)
		if !ok {
			res.Skipped = true
			return res
		}
		if err := e.write(op.Path, content); err != nil {
			res.Error = err.Error()
			return res
		}
		e.track(op.Path, op.FileKind, hashing.Digest(content))
		res.Applied = true
		return res

	case DecisionKeep:
		observed, exists, err := e.observe(op.Path)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		if !exists {
			res.Error = errors.NewStalePlanError(op.Path, op.DiskHash, "").Error()
			res.Stale = true
			return res
		}
		// A kind with canonical content cannot adopt the edit as its
		// baseline: disk would then match the manifest while canonical
		// still differs, and the next run would auto-update over the
		// kept edit. The file stays untouched and the conflict stays
		// open until the user overwrites or deletes.
		if _, hasCanonical := e.provider.Canonical(op.FileKind, op.Path); hasCanonical {
			res.Skipped = true
			res.Reason = "kept-edit"
			return res
		}
		// Caller-owned content has no canonical form to drift from, so
		// keeping the edit adopts it as the new baseline and the same
		// edit stops surfacing as a conflict.
		e.track(op.Path, op.FileKind, observed)
		res.Applied = true
		return res

	case DecisionDelete:
		if err := os.Remove(e.abs(op.Path)); err != nil && !os.IsNotExist(err) {
			res.Error = errors.WrapIO("delete file", op.Path, err).Error()
			return res
		}
		e.manifest.Remove(op.Path)
		res.Applied = true
		return res

	default:
		res.Skipped = true
		return res
	}
}

func (e *executor) applyMissing(op Operation, decision Decision, res OpResult) OpResult {
	// A file that reappeared since planning is adopted as-is; acting on
	// the missing decision would touch content the plan never saw.
	if !op.FileKind.IsDirectory() && !strings.HasSuffix(op.Path, "/") {
		observed, exists, err := e.observe(op.Path)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		if exists {
			e.track(op.Path, op.FileKind, observed)
			res.Applied = true
			return res
		}
	}

	switch decision {
	case DecisionDelete:
		// Accept the deletion: untrack, touch nothing on disk.
		e.manifest.Remove(op.Path)
		res.Applied = true
		return res

	case DecisionOverwrite:
		// Recreate from canonical content where it exists.
		if op.FileKind.IsDirectory() || strings.HasSuffix(op.Path, "/") {
			if err := os.MkdirAll(e.abs(op.Path), constants.DirPermissions); err != nil {
				res.Error = errors.WrapIO("create directory", op.Path, err).Error()
				return res
			}
			e.track(op.Path, op.FileKind, "")
			res.Applied = true
			return res
		}
		content, ok := e.provider.Canonical(op.FileKind, op.Path)
		if !ok {
			// Nothing to recreate from; untracking is the only
			// coherent outcome.
			e.manifest.Remove(op.Path)
			res.Applied = true
			return res
		}
		if err := e.write(op.Path, content); err != nil {
			res.Error = err.Error()
			return res
		}
		e.track(op.Path, op.FileKind, hashing.Digest(content))
		res.Applied = true
		return res

	default:
		res.Skipped = true
		return res
	}
}

func (e *executor) applyAdopt(op Operation, res OpResult) OpResult {
	if op.FileKind.IsDirectory() || strings.HasSuffix(op.Path, "/") {
		e.track(op.Path, op.FileKind, "")
		res.Applied = true
		return res
	}
	observed, exists, err := e.observe(op.Path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if !exists {
		res.Stale = true
		res.Error = errors.NewStalePlanError(op.Path, op.DiskHash, "").Error()
		return res
	}
	e.track(op.Path, op.FileKind, observed)
	res.Applied = true
	return res
}

// observe re-reads a file's current hash. The empty hash with exists
// false means the file is absent.
func (e *executor) observe(relPath string) (hash string, exists bool, err error) {
	abs := e.abs(relPath)
	if _, statErr := os.Stat(abs); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", false, nil
		}
		return "", false, errors.WrapIO("stat file", relPath, statErr)
	}
	h, err := hashing.DigestFile(abs)
	if err != nil {
		return "", false, err
	}
	return h, true, nil
}

// write atomically replaces a managed file via temp file and rename in
// the destination directory.
func (e *executor) write(relPath string, content []byte) error {
	abs := e.abs(relPath)
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create directory", relPath, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(abs)+".tmp-*")
	if err != nil {
		return errors.WrapIO("create temp file", relPath, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.WrapIO("write temp file", relPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("close temp file", relPath, err)
	}
	if err := os.Chmod(tmpName, constants.FilePermissions); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("chmod temp file", relPath, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("rename temp file", relPath, err)
	}
	return nil
}

func (e *executor) track(relPath string, kind manifest.FileKind, hash string) {
	e.manifest.Upsert(manifest.NewEntry(relPath, kind, hash))
}

func (e *executor) abs(relPath string) string {
	cleaned := strings.TrimSuffix(relPath, "/")
	return filepath.Join(manifest.CentyPath(e.projectPath), filepath.FromSlash(cleaned))
}

func newExecutor(projectPath string, m *manifest.Manifest, provider templates.Provider) *executor {
	return &executor{
		projectPath: projectPath,
		manifest:    m,
		provider:    provider,
		log:         logging.Default().With().Str("project", projectPath).Logger(),
	}
}
