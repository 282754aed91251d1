package docs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/errors"
	"github.com/centy-io/centy-daemon/pkg/manifest"
	"github.com/centy-io/centy-daemon/pkg/reconcile"
)

func newTestProject(t *testing.T) (string, *Service) {
	t.Helper()
	dir := t.TempDir()
	rec := reconcile.NewService()
	_, err := rec.Init(context.Background(), dir)
	require.NoError(t, err)
	return dir, NewService(rec.Locks())
}

func TestCreateDoc(t *testing.T) {
	dir, svc := newTestProject(t)

	doc, err := svc.Create(context.Background(), dir, CreateRequest{Title: "Getting Started"})
	require.NoError(t, err)

	assert.Equal(t, "getting-started", doc.Slug)
	assert.Equal(t, "docs/getting-started.md", doc.Path)
	assert.Equal(t, "# Getting Started\n", doc.Content)

	data, err := os.ReadFile(filepath.Join(dir, constants.CentyDir, "docs", "getting-started.md"))
	require.NoError(t, err)
	assert.Equal(t, doc.Content, string(data))

	m, err := manifest.NewStore(dir).LoadRequired()
	require.NoError(t, err)
	assert.NotNil(t, m.Find("docs/getting-started.md"))
}

func TestCreateDocExplicitSlugAndContent(t *testing.T) {
	dir, svc := newTestProject(t)

	doc, err := svc.Create(context.Background(), dir, CreateRequest{
		Title:   "Architecture Decision 1",
		Slug:    "adr-001",
		Content: "context and decision\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "adr-001", doc.Slug)
	assert.Equal(t, "context and decision\n", doc.Content)

	_, err = svc.Create(context.Background(), dir, CreateRequest{Title: "x", Slug: "Bad Slug"})
	assert.Error(t, err)
}

func TestCreateDocDuplicate(t *testing.T) {
	dir, svc := newTestProject(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, dir, CreateRequest{Title: "Guide"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, dir, CreateRequest{Title: "Guide"})
	assert.True(t, errors.IsAlreadyExists(err))
}

func TestGetListUpdateDeleteDoc(t *testing.T) {
	dir, svc := newTestProject(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, dir, CreateRequest{Title: "Beta"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, dir, CreateRequest{Title: "Alpha"})
	require.NoError(t, err)

	all, err := svc.List(ctx, dir)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Slug)
	assert.Equal(t, "beta", all[1].Slug)

	got, err := svc.Get(ctx, dir, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "# Alpha\n", got.Content)

	updated, err := svc.Update(ctx, dir, "alpha", "# Alpha\n\nMore.\n")
	require.NoError(t, err)
	assert.Contains(t, updated.Content, "More.")

	require.NoError(t, svc.Delete(ctx, dir, "alpha"))
	_, err = svc.Get(ctx, dir, "alpha")
	assert.True(t, errors.IsNotFound(err))

	m, err := manifest.NewStore(dir).LoadRequired()
	require.NoError(t, err)
	assert.Nil(t, m.Find("docs/alpha.md"))

	assert.True(t, errors.IsNotFound(svc.Delete(ctx, dir, "alpha")))
	_, err = svc.Update(ctx, dir, "nope", "x")
	assert.True(t, errors.IsNotFound(err))
}

func TestRenameDoc(t *testing.T) {
	dir, svc := newTestProject(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, dir, CreateRequest{Title: "Old Name", Content: "body stays\n"})
	require.NoError(t, err)

	doc, err := svc.Rename(ctx, dir, "old-name", "new-name")
	require.NoError(t, err)
	assert.Equal(t, "new-name", doc.Slug)
	assert.Equal(t, "body stays\n", doc.Content)

	_, err = svc.Get(ctx, dir, "old-name")
	assert.True(t, errors.IsNotFound(err))

	m, err := manifest.NewStore(dir).LoadRequired()
	require.NoError(t, err)
	assert.Nil(t, m.Find("docs/old-name.md"))
	assert.NotNil(t, m.Find("docs/new-name.md"))
}

func TestRenameDocCollision(t *testing.T) {
	dir, svc := newTestProject(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, dir, CreateRequest{Title: "One"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, dir, CreateRequest{Title: "Two"})
	require.NoError(t, err)

	_, err = svc.Rename(ctx, dir, "one", "two")
	assert.True(t, errors.IsAlreadyExists(err))
}

func TestCreateDocWithTemplate(t *testing.T) {
	dir, svc := newTestProject(t)

	tplDir := filepath.Join(dir, constants.CentyDir, "templates", "docs")
	require.NoError(t, os.MkdirAll(tplDir, 0o755))
	tpl := "# {{title}}\n\nslug: {{slug}}\n\n{{content}}\n"
	require.NoError(t, os.WriteFile(filepath.Join(tplDir, "rfc.md"), []byte(tpl), 0o644))

	doc, err := svc.Create(context.Background(), dir, CreateRequest{
		Title:    "New Storage Layout",
		Content:  "proposal body",
		Template: "rfc",
	})
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "# New Storage Layout")
	assert.Contains(t, doc.Content, "slug: new-storage-layout")
	assert.Contains(t, doc.Content, "proposal body")
}

func TestDocRequiresInit(t *testing.T) {
	svc := NewService(reconcile.NewLockRegistry())
	_, err := svc.List(context.Background(), t.TempDir())
	assert.True(t, errors.IsNotInitialized(err))
}

func TestDocWritesLeaveNoTempFiles(t *testing.T) {
	dir, svc := newTestProject(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, dir, CreateRequest{Title: "Scratch"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, dir, doc.Slug, "# Scratch\n\nRevised.\n")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, constants.CentyDir, "docs"))
	require.NoError(t, err)
	for _, de := range entries {
		assert.NotContains(t, de.Name(), ".tmp-")
	}
}
