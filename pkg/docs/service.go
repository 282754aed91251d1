package docs

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/utc"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/errors"
	"github.com/centy-io/centy-daemon/pkg/hashing"
	"github.com/centy-io/centy-daemon/pkg/logging"
	"github.com/centy-io/centy-daemon/pkg/manifest"
	"github.com/centy-io/centy-daemon/pkg/projconfig"
	"github.com/centy-io/centy-daemon/pkg/reconcile"
	"github.com/centy-io/centy-daemon/pkg/templates"
)

// Doc is one document in the managed docs/ directory. The slug is the
// identity and the file name stem; timestamps come from the filesystem.
type Doc struct {
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Content   string   `json:"content,omitempty"`
	Path      string   `json:"path"`
	UpdatedAt utc.Time `json:"updatedAt"`
}

// Service implements doc CRUD sharing the reconciler's per-project
// locks, mirroring the issue service.
type Service struct {
	locks *reconcile.LockRegistry
}

// NewService creates a doc service sharing the reconciler's locks.
func NewService(locks *reconcile.LockRegistry) *Service {
	return &Service{locks: locks}
}

// CreateRequest carries the fields for a new doc. An empty slug is
// derived from the title.
type CreateRequest struct {
	Title    string `json:"title"`
	Slug     string `json:"slug,omitempty"`
	Content  string `json:"content,omitempty"`
	Template string `json:"template,omitempty"`
}

// Create writes a new doc file and tracks it in the manifest.
func (s *Service) Create(ctx context.Context, projectPath string, req CreateRequest) (*Doc, error) {
	unlock := s.locks.Lock(projectPath)
	defer unlock()

	cfg, err := s.requireInit(projectPath)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.NewValidationError("title", req.Title, "title is required")
	}

	slug := req.Slug
	if slug == "" {
		slug, err = Slugify(title)
		if err != nil {
			return nil, err
		}
	} else if err := ValidateSlug(slug); err != nil {
		return nil, err
	}

	rel := relPath(slug, cfg)
	abs := s.abs(projectPath, rel)
	if _, err := os.Stat(abs); err == nil {
		return nil, errors.NewResourceError("create", "doc", slug, errors.ErrAlreadyExists)
	}

	content := req.Content
	if req.Template != "" {
		now := utc.Now()
		content, err = templates.RenderDoc(projectPath, req.Template, &templates.DocContext{
			Title:     title,
			Content:   req.Content,
			Slug:      slug,
			CreatedAt: now.String(),
			UpdatedAt: now.String(),
		})
		if err != nil {
			return nil, err
		}
	} else if content == "" {
		content = "# " + title + "\n"
	}

	if err := s.write(projectPath, rel, content); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("doc", slug).Msg("doc created")
	return &Doc{Slug: slug, Title: title, Content: content, Path: rel, UpdatedAt: utc.Now()}, nil
}

// Get loads one doc by slug.
func (s *Service) Get(ctx context.Context, projectPath, slug string) (*Doc, error) {
	unlock := s.locks.RLock(projectPath)
	defer unlock()

	cfg, err := s.requireInit(projectPath)
	if err != nil {
		return nil, err
	}
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	return s.read(projectPath, relPath(slug, cfg))
}

// List returns all docs in the docs/ directory, sorted by slug. Content
// is omitted; Get loads it.
func (s *Service) List(ctx context.Context, projectPath string) ([]*Doc, error) {
	unlock := s.locks.RLock(projectPath)
	defer unlock()

	if _, err := s.requireInit(projectPath); err != nil {
		return nil, err
	}

	root := filepath.Join(manifest.CentyPath(projectPath), constants.DocsDir)
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Doc{}, nil
		}
		return nil, errors.WrapIO("read", root, err)
	}

	docs := make([]*Doc, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		ext := filepath.Ext(name)
		if ext != ".md" && ext != ".adoc" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		slug := strings.TrimSuffix(name, ext)
		docs = append(docs, &Doc{
			Slug:      slug,
			Title:     titleFromSlug(slug),
			Path:      constants.DocsDir + "/" + name,
			UpdatedAt: utc.New(info.ModTime()),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Slug < docs[j].Slug })
	return docs, nil
}

// Update replaces a doc's content.
func (s *Service) Update(ctx context.Context, projectPath, slug, content string) (*Doc, error) {
	unlock := s.locks.Lock(projectPath)
	defer unlock()

	cfg, err := s.requireInit(projectPath)
	if err != nil {
		return nil, err
	}
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}

	rel := relPath(slug, cfg)
	if _, err := os.Stat(s.abs(projectPath, rel)); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("doc", slug)
		}
		return nil, errors.WrapIO("stat", rel, err)
	}

	if err := s.write(projectPath, rel, content); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("doc", slug).Msg("doc updated")
	return &Doc{Slug: slug, Title: titleFromSlug(slug), Content: content, Path: rel, UpdatedAt: utc.Now()}, nil
}

// Rename moves a doc to a new slug, retracking it in the manifest. The
// content is untouched.
func (s *Service) Rename(ctx context.Context, projectPath, slug, newSlug string) (*Doc, error) {
	unlock := s.locks.Lock(projectPath)
	defer unlock()

	cfg, err := s.requireInit(projectPath)
	if err != nil {
		return nil, err
	}
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if err := ValidateSlug(newSlug); err != nil {
		return nil, err
	}

	oldRel := relPath(slug, cfg)
	newRel := relPath(newSlug, cfg)
	oldAbs := s.abs(projectPath, oldRel)
	newAbs := s.abs(projectPath, newRel)

	if _, err := os.Stat(oldAbs); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("doc", slug)
		}
		return nil, errors.WrapIO("stat", oldRel, err)
	}
	if _, err := os.Stat(newAbs); err == nil {
		return nil, errors.NewResourceError("rename", "doc", newSlug, errors.ErrAlreadyExists)
	}
	if err := os.Rename(oldAbs, newAbs); err != nil {
		return nil, errors.WrapIO("rename", oldRel, err)
	}

	store := manifest.NewStore(projectPath)
	m, err := store.LoadRequired()
	if err != nil {
		return nil, err
	}
	hash := ""
	if entry := m.Find(oldRel); entry != nil {
		hash = entry.Hash
	} else if h, err := hashing.DigestFile(newAbs); err == nil {
		hash = h
	}
	m.Remove(oldRel)
	m.Upsert(manifest.NewEntry(newRel, manifest.KindDoc, hash))
	if err := store.Save(m); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("doc", slug).Str("new_slug", newSlug).Msg("doc renamed")
	return s.read(projectPath, newRel)
}

// Delete removes a doc and untracks it.
func (s *Service) Delete(ctx context.Context, projectPath, slug string) error {
	unlock := s.locks.Lock(projectPath)
	defer unlock()

	cfg, err := s.requireInit(projectPath)
	if err != nil {
		return err
	}
	if err := ValidateSlug(slug); err != nil {
		return err
	}

	rel := relPath(slug, cfg)
	abs := s.abs(projectPath, rel)
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("doc", slug)
		}
		return errors.WrapIO("stat", rel, err)
	}
	if err := os.Remove(abs); err != nil {
		return errors.WrapIO("delete", rel, err)
	}

	store := manifest.NewStore(projectPath)
	m, err := store.LoadRequired()
	if err != nil {
		return err
	}
	if m.Remove(rel) {
		if err := store.Save(m); err != nil {
			return err
		}
	}

	logging.Ctx(ctx).Info().Str("doc", slug).Msg("doc deleted")
	return nil
}

func (s *Service) requireInit(projectPath string) (*projconfig.Config, error) {
	if !manifest.Exists(projectPath) {
		return nil, errors.NewNotInitializedError(projectPath)
	}
	return projconfig.Read(projectPath)
}

func (s *Service) abs(projectPath, rel string) string {
	return filepath.Join(manifest.CentyPath(projectPath), filepath.FromSlash(rel))
}

func (s *Service) read(projectPath, rel string) (*Doc, error) {
	abs := s.abs(projectPath, rel)
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("doc", rel)
		}
		return nil, errors.WrapIO("read", rel, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.WrapIO("stat", rel, err)
	}

	ext := filepath.Ext(rel)
	slug := strings.TrimSuffix(filepath.Base(rel), ext)
	return &Doc{
		Slug:      slug,
		Title:     titleFromSlug(slug),
		Content:   string(data),
		Path:      rel,
		UpdatedAt: utc.New(info.ModTime()),
	}, nil
}

// write persists doc content and records its hash in the manifest. The
// write goes through a temp file and rename so a crash mid-write never
// leaves a truncated doc behind.
func (s *Service) write(projectPath, rel, content string) error {
	abs := s.abs(projectPath, rel)
	if err := os.MkdirAll(filepath.Dir(abs), constants.DirPermissions); err != nil {
		return errors.WrapIO("create", rel, err)
	}
	if err := writeFileAtomic(abs, []byte(content)); err != nil {
		return err
	}

	store := manifest.NewStore(projectPath)
	m, err := store.LoadRequired()
	if err != nil {
		return err
	}
	m.Upsert(manifest.NewEntry(rel, manifest.KindDoc, hashing.DigestString(content)))
	return store.Save(m)
}

func relPath(slug string, cfg *projconfig.Config) string {
	return constants.DocsDir + "/" + slug + cfg.Format.Extension()
}

// titleFromSlug is a display fallback when the content has no parsed
// title: hyphens to spaces, words capitalized.
func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// writeFileAtomic replaces a file via temp write and rename.
func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.WrapIO("create temp file", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.WrapIO("write temp file", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("close temp file", path, err)
	}
	if err := os.Chmod(tmpName, constants.FilePermissions); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("chmod temp file", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.WrapIO("rename temp file", path, err)
	}
	return nil
}
