package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/hashing"
	"github.com/centy-io/centy-daemon/pkg/manifest"
	"github.com/centy-io/centy-daemon/pkg/templates"
)

func readCentyFile(t *testing.T, projectPath, relPath string) string {
	t.Helper()
	abs := filepath.Join(projectPath, constants.CentyDir, filepath.FromSlash(relPath))
	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	return string(data)
}

func loadManifest(t *testing.T, projectPath string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.NewStore(projectPath).LoadRequired()
	require.NoError(t, err)
	return m
}

func TestExecuteConflictDefaultSkipPreservesEdit(t *testing.T) {
	dir, svc := initProject(t)
	writeCentyFile(t, dir, "README.md", "my own notes")

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)

	report, err := svc.Execute(context.Background(), plan, nil)
	require.NoError(t, err)

	assert.Equal(t, "my own notes", readCentyFile(t, dir, "README.md"))
	assert.Zero(t, report.Failed)

	// Undecided, so the conflict surfaces again on the next plan.
	plan, err = svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, OpConflict, findOp(t, plan, "README.md").Kind)
}

func TestExecuteConflictOverwriteRestoresCanonical(t *testing.T) {
	dir, svc := initProject(t)
	original := readCentyFile(t, dir, "README.md")
	writeCentyFile(t, dir, "README.md", "my own notes")

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)

	report, err := svc.Execute(context.Background(), plan, Decisions{"README.md": DecisionOverwrite})
	require.NoError(t, err)
	require.Zero(t, report.Failed)

	assert.Equal(t, original, readCentyFile(t, dir, "README.md"))

	plan, err = svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, OpSkip, findOp(t, plan, "README.md").Kind)
}

func TestExecuteConflictKeepOnCanonicalKindStaysPending(t *testing.T) {
	dir, svc := initProject(t)
	originalHash := loadManifest(t, dir).Find("README.md").Hash
	writeCentyFile(t, dir, "README.md", "my own notes")

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)

	report, err := svc.Execute(context.Background(), plan, Decisions{"README.md": DecisionKeep})
	require.NoError(t, err)
	require.Zero(t, report.Failed)

	// The edit is preserved but not adopted: re-baselining a kind with
	// canonical content would make the next run auto-update over it.
	assert.Equal(t, "my own notes", readCentyFile(t, dir, "README.md"))
	entry := loadManifest(t, dir).Find("README.md")
	require.NotNil(t, entry)
	assert.Equal(t, originalHash, entry.Hash)

	// The conflict surfaces again, and another undecided run still does
	// not touch the edit.
	plan, err = svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, OpConflict, findOp(t, plan, "README.md").Kind)
	_, err = svc.Execute(context.Background(), plan, nil)
	require.NoError(t, err)
	assert.Equal(t, "my own notes", readCentyFile(t, dir, "README.md"))
}

func TestExecuteConflictKeepRebaselinesCallerOwned(t *testing.T) {
	dir, svc := initProject(t)
	edited := `{"priorityLevels": 4}`
	writeCentyFile(t, dir, "config.json", edited)

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, OpConflict, findOp(t, plan, "config.json").Kind)

	_, err = svc.Execute(context.Background(), plan, Decisions{"config.json": DecisionKeep})
	require.NoError(t, err)

	// Config has no canonical form, so the kept edit becomes the new
	// baseline and stops surfacing.
	assert.Equal(t, edited, readCentyFile(t, dir, "config.json"))
	entry := loadManifest(t, dir).Find("config.json")
	require.NotNil(t, entry)
	assert.Equal(t, hashing.DigestString(edited), entry.Hash)

	plan, err = svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, OpSkip, findOp(t, plan, "config.json").Kind)
}

func TestExecuteConflictDeleteRemovesAndUntracks(t *testing.T) {
	dir, svc := initProject(t)
	writeCentyFile(t, dir, "docs/spec-notes.md", "v1")

	// Adopt the doc first so it is tracked.
	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), plan, nil)
	require.NoError(t, err)

	writeCentyFile(t, dir, "docs/spec-notes.md", "v2")
	plan, err = svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, OpConflict, findOp(t, plan, "docs/spec-notes.md").Kind)

	_, err = svc.Execute(context.Background(), plan, Decisions{"docs/spec-notes.md": DecisionDelete})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, constants.CentyDir, "docs", "spec-notes.md"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Nil(t, loadManifest(t, dir).Find("docs/spec-notes.md"))
}

func TestExecuteMissingDeleteAcceptsRemoval(t *testing.T) {
	dir, svc := initProject(t)
	writeCentyFile(t, dir, "docs/old.md", "content")

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), plan, nil)
	require.NoError(t, err)

	removeCentyFile(t, dir, "docs/old.md")
	plan, err = svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, OpMissing, findOp(t, plan, "docs/old.md").Kind)

	_, err = svc.Execute(context.Background(), plan, Decisions{"docs/old.md": DecisionDelete})
	require.NoError(t, err)

	assert.Nil(t, loadManifest(t, dir).Find("docs/old.md"))

	// Untracked and gone from disk: no further operations for it.
	plan, err = svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	for _, op := range plan.Operations {
		assert.NotEqual(t, "docs/old.md", op.Path)
	}
}

func TestExecuteMissingOverwriteRecreatesCanonical(t *testing.T) {
	dir, svc := initProject(t)
	original := readCentyFile(t, dir, "README.md")
	removeCentyFile(t, dir, "README.md")

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, OpMissing, findOp(t, plan, "README.md").Kind)

	_, err = svc.Execute(context.Background(), plan, Decisions{"README.md": DecisionOverwrite})
	require.NoError(t, err)

	assert.Equal(t, original, readCentyFile(t, dir, "README.md"))
}

func TestExecuteMissingCallerOwnedOverwriteUntracks(t *testing.T) {
	dir, svc := initProject(t)
	writeCentyFile(t, dir, "docs/gone.md", "content")

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), plan, nil)
	require.NoError(t, err)

	removeCentyFile(t, dir, "docs/gone.md")
	plan, err = svc.Plan(context.Background(), dir)
	require.NoError(t, err)

	// No canonical content exists for a doc, so recreation degrades to
	// untracking.
	_, err = svc.Execute(context.Background(), plan, Decisions{"docs/gone.md": DecisionOverwrite})
	require.NoError(t, err)
	assert.Nil(t, loadManifest(t, dir).Find("docs/gone.md"))
}

func TestExecuteAdoptTracksWithoutModifying(t *testing.T) {
	dir, svc := initProject(t)
	writeCentyFile(t, dir, "docs/adopted.md", "hand-written")

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, OpAdopt, findOp(t, plan, "docs/adopted.md").Kind)

	_, err = svc.Execute(context.Background(), plan, nil)
	require.NoError(t, err)

	assert.Equal(t, "hand-written", readCentyFile(t, dir, "docs/adopted.md"))
	entry := loadManifest(t, dir).Find("docs/adopted.md")
	require.NotNil(t, entry)
	assert.Equal(t, hashing.DigestString("hand-written"), entry.Hash)
}

func TestExecuteLeavesForeignFilesAlone(t *testing.T) {
	dir, svc := initProject(t)
	writeCentyFile(t, dir, "scratch.txt", "untouchable")
	writeCentyFile(t, dir, "README.md", "edited")

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), plan, Decisions{"README.md": DecisionOverwrite})
	require.NoError(t, err)

	assert.Equal(t, "untouchable", readCentyFile(t, dir, "scratch.txt"))
	assert.Nil(t, loadManifest(t, dir).Find("scratch.txt"))
}

func TestExecuteStaleAutoUpdateSkipsOthersApply(t *testing.T) {
	dir, svc := initProject(t)

	// Switching the body format changes the canonical README and adds a
	// README.adoc slot, so the next plan carries an auto-update and a
	// create.
	writeCentyFile(t, dir, "config.json", `{"format":"asciidoc"}`)

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, OpAutoUpdate, findOp(t, plan, "README.md").Kind)
	require.Equal(t, OpCreate, findOp(t, plan, "README.adoc").Kind)

	// Race: the file changes between plan and execute. The edit raced
	// the plan, so it is a conflict now, not a failure; undecided, it is
	// left alone and resurfaces.
	writeCentyFile(t, dir, "README.md", "edited after planning")

	report, err := svc.Execute(context.Background(), plan, nil)
	require.NoError(t, err)

	assert.Zero(t, report.Failed)
	var stale OpResult
	for _, res := range report.Results {
		if res.Path == "README.md" {
			stale = res
		}
	}
	assert.True(t, stale.Stale)
	assert.True(t, stale.Skipped)
	assert.Equal(t, "stale-plan", stale.Reason)
	assert.Empty(t, stale.Error)

	// The racing edit survived, and the independent create still ran.
	assert.Equal(t, "edited after planning", readCentyFile(t, dir, "README.md"))
	assert.NotNil(t, loadManifest(t, dir).Find("README.adoc"))

	plan, err = svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, OpConflict, findOp(t, plan, "README.md").Kind)
}

func TestExecuteStaleAutoUpdateHonorsDecision(t *testing.T) {
	dir, svc := initProject(t)
	writeCentyFile(t, dir, "config.json", `{"format":"asciidoc"}`)

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, OpAutoUpdate, findOp(t, plan, "README.md").Kind)

	writeCentyFile(t, dir, "README.md", "edited after planning")

	report, err := svc.Execute(context.Background(), plan,
		Decisions{"README.md": DecisionOverwrite})
	require.NoError(t, err)
	require.Zero(t, report.Failed)

	// Overwrite resolves the raced edit the same way it resolves a
	// planned conflict: canonical content wins.
	content := readCentyFile(t, dir, "README.md")
	assert.Contains(t, content, "= Centy Project")
	entry := loadManifest(t, dir).Find("README.md")
	require.NotNil(t, entry)
	assert.Equal(t, hashing.DigestString(content), entry.Hash)
}

func TestExecuteStaleCreateRefusesToClobber(t *testing.T) {
	dir, svc := initProject(t)

	// Untrack and remove the readme so the next plan wants to create it.
	removeCentyFile(t, dir, "README.md")
	m := loadManifest(t, dir)
	m.Remove("README.md")
	require.NoError(t, manifest.NewStore(dir).Save(m))

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, OpCreate, findOp(t, plan, "README.md").Kind)

	writeCentyFile(t, dir, "README.md", "appeared meanwhile")

	report, err := svc.Execute(context.Background(), plan, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Failed)
	assert.Equal(t, "appeared meanwhile", readCentyFile(t, dir, "README.md"))

	var stale OpResult
	for _, res := range report.Results {
		if res.Path == "README.md" {
			stale = res
		}
	}
	assert.True(t, stale.Stale)
	assert.True(t, stale.Skipped)
	assert.Equal(t, "stale-plan", stale.Reason)
}

// canonicalEverything provides canonical bytes for every file kind so a
// hand-built plan of creates always has something to write.
type canonicalEverything struct{}

func (canonicalEverything) DesiredFiles() []templates.DesiredFile { return nil }

func (canonicalEverything) Canonical(manifest.FileKind, string) ([]byte, bool) {
	return []byte("canonical\n"), true
}

func TestExecutePartialFailureIsolation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(manifest.CentyPath(dir), constants.DirPermissions))
	m := manifest.New()
	require.NoError(t, manifest.NewStore(dir).Save(m))

	// A regular file where a directory is needed makes exactly one of
	// the writes fail.
	require.NoError(t, os.WriteFile(
		filepath.Join(manifest.CentyPath(dir), "blocked"), []byte("x"), 0o644))

	exec := newExecutor(dir, m, canonicalEverything{})
	plan := &Plan{ProjectPath: dir, Operations: []Operation{
		{Path: "docs/a.md", FileKind: manifest.KindDoc, Kind: OpCreate},
		{Path: "blocked/b.md", FileKind: manifest.KindDoc, Kind: OpCreate},
		{Path: "docs/c.md", FileKind: manifest.KindDoc, Kind: OpCreate},
	}}

	report, err := exec.execute(plan, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Applied)
	assert.Equal(t, 1, report.Failed)

	// The persisted manifest reflects exactly the successes.
	saved := loadManifest(t, dir)
	assert.NotNil(t, saved.Find("docs/a.md"))
	assert.NotNil(t, saved.Find("docs/c.md"))
	assert.Nil(t, saved.Find("blocked/b.md"))
	assert.Equal(t, "canonical\n", readCentyFile(t, dir, "docs/a.md"))
}

func TestExecuteCleanAutoUpdateAppliesWithoutDecision(t *testing.T) {
	dir, svc := initProject(t)
	userConfig := `{"format":"asciidoc"}`
	writeCentyFile(t, dir, "config.json", userConfig)

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, OpAutoUpdate, findOp(t, plan, "README.md").Kind)

	report, err := svc.Execute(context.Background(), plan, nil)
	require.NoError(t, err)
	require.Zero(t, report.Failed)

	var updated OpResult
	for _, res := range report.Results {
		if res.Path == "README.md" {
			updated = res
		}
	}
	assert.True(t, updated.Applied)
	assert.False(t, updated.Stale)

	// The unmodified readme follows the format change without a
	// decision, and the baseline tracks the new content.
	content := readCentyFile(t, dir, "README.md")
	assert.Contains(t, content, "= Centy Project")
	require.NotNil(t, report.Manifest)
	entry := report.Manifest.Find("README.md")
	require.NotNil(t, entry)
	assert.Equal(t, hashing.DigestString(content), entry.Hash)

	// The edited config itself stays untouched.
	assert.Equal(t, userConfig, readCentyFile(t, dir, "config.json"))
}

func TestExecuteWritesAreAtomic(t *testing.T) {
	dir, svc := initProject(t)
	writeCentyFile(t, dir, "README.md", "edited")

	plan, err := svc.Plan(context.Background(), dir)
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), plan, Decisions{"README.md": DecisionOverwrite})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, constants.CentyDir))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}
