package issues

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/errors"
	"github.com/centy-io/centy-daemon/pkg/hashing"
	"github.com/centy-io/centy-daemon/pkg/logging"
	"github.com/centy-io/centy-daemon/pkg/manifest"
	"github.com/centy-io/centy-daemon/pkg/projconfig"
	"github.com/centy-io/centy-daemon/pkg/reconcile"
	"github.com/centy-io/centy-daemon/pkg/templates"
)

const (
	bodyFileName     = "issue.md"
	metadataFileName = "metadata.json"
)

// Service implements issue CRUD. Every mutation holds the project's
// exclusive lock from the shared registry so issue writes serialize
// against reconciliation runs, and tracks the written files in the
// manifest so reconciliation recognizes them as managed.
type Service struct {
	locks *reconcile.LockRegistry
}

// NewService creates an issue service sharing the reconciler's locks.
func NewService(locks *reconcile.LockRegistry) *Service {
	return &Service{locks: locks}
}

// CreateRequest carries the caller-supplied fields for a new issue.
// Zero values fall back to configured defaults.
type CreateRequest struct {
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Status       string            `json:"status,omitempty"`
	Priority     PrioritySpec      `json:"priority,omitempty"`
	CustomFields map[string]string `json:"customFields,omitempty"`
	Template     string            `json:"template,omitempty"`
}

// UpdateRequest carries partial updates; nil fields stay unchanged.
type UpdateRequest struct {
	Title        *string           `json:"title,omitempty"`
	Description  *string           `json:"description,omitempty"`
	Status       *string           `json:"status,omitempty"`
	Priority     *PrioritySpec     `json:"priority,omitempty"`
	CustomFields map[string]string `json:"customFields,omitempty"`
}

// Create writes a new issue folder with body and metadata documents.
func (s *Service) Create(ctx context.Context, projectPath string, req CreateRequest) (*Issue, error) {
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
	if len(title) > constants.MaxTitleLength {
		return nil, errors.NewValidationError("title", title,
			fmt.Sprintf("title exceeds %d characters", constants.MaxTitleLength))
	}

	priority := DefaultPriority(cfg)
	if !req.Priority.IsZero() {
		priority, err = req.Priority.Resolve(cfg.PriorityLevels)
		if err != nil {
			return nil, err
		}
	}
	if err := priority.Validate(cfg); err != nil {
		return nil, err
	}

	if err := validateCustomFields(cfg, req.CustomFields); err != nil {
		return nil, err
	}

	now := utc.Now()
	meta := Metadata{
		ID:            uuid.NewString(),
		DisplayNumber: s.nextDisplayNumber(projectPath, cfg.PriorityLevels),
		Title:         title,
		Description:   req.Description,
		Status:        NormalizeStatus(cfg, req.Status),
		Priority:      priority,
		CustomFields:  applyFieldDefaults(cfg, req.CustomFields),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	body, err := s.renderBody(projectPath, cfg, &meta, req.Template)
	if err != nil {
		return nil, err
	}

	if err := s.persist(projectPath, &meta, body); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("issue", meta.ID).
		Int("displayNumber", meta.DisplayNumber).
		Msg("issue created")
	return &Issue{Metadata: meta, Body: body}, nil
}

// Get loads one issue by UUID.
func (s *Service) Get(ctx context.Context, projectPath, id string) (*Issue, error) {
	unlock := s.locks.RLock(projectPath)
	defer unlock()

	cfg, err := s.requireInit(projectPath)
	if err != nil {
		return nil, err
	}
	return s.read(projectPath, id, cfg.PriorityLevels)
}

// ListFilter narrows List results. The zero value matches every issue.
// Priority accepts the same label and numeric forms as creation.
type ListFilter struct {
	Status   string
	Priority string
}

// List returns matching issues ordered by display number. Folders with
// unreadable metadata are skipped with a warning rather than failing
// the whole listing.
func (s *Service) List(ctx context.Context, projectPath string, filter ListFilter) ([]*Issue, error) {
	unlock := s.locks.RLock(projectPath)
	defer unlock()

	cfg, err := s.requireInit(projectPath)
	if err != nil {
		return nil, err
	}

	var wantPriority *Priority
	if filter.Priority != "" {
		p, perr := FromLabel(filter.Priority, cfg.PriorityLevels)
		if perr != nil {
			return nil, perr
		}
		wantPriority = &p
	}

	root := s.issuesRoot(projectPath)
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Issue{}, nil
		}
		return nil, errors.WrapIO("read", root, err)
	}

	issues := make([]*Issue, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		issue, err := s.read(projectPath, de.Name(), cfg.PriorityLevels)
		if err != nil {
			logging.Ctx(ctx).Warn().
				Str("issue", de.Name()).
				Err(err).
				Msg("skipping unreadable issue")
			continue
		}
		if filter.Status != "" && issue.Status != filter.Status {
			continue
		}
		if wantPriority != nil && issue.Priority != *wantPriority {
			continue
		}
		issues = append(issues, issue)
	}

	sort.Slice(issues, func(i, j int) bool {
		return issues[i].DisplayNumber < issues[j].DisplayNumber
	})
	return issues, nil
}

// Update applies a partial update and bumps the updated timestamp.
func (s *Service) Update(ctx context.Context, projectPath, id string, req UpdateRequest) (*Issue, error) {
	unlock := s.locks.Lock(projectPath)
	defer unlock()

	cfg, err := s.requireInit(projectPath)
	if err != nil {
		return nil, err
	}

	issue, err := s.read(projectPath, id, cfg.PriorityLevels)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, errors.NewValidationError("title", *req.Title, "title cannot be empty")
		}
		issue.Title = title
	}
	if req.Description != nil {
		issue.Description = *req.Description
	}
	if req.Status != nil {
		issue.Status = NormalizeStatus(cfg, *req.Status)
	}
	if req.Priority != nil {
		p, err := req.Priority.Resolve(cfg.PriorityLevels)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(cfg); err != nil {
			return nil, err
		}
		issue.Priority = p
	}
	if req.CustomFields != nil {
		if err := validateCustomFields(cfg, req.CustomFields); err != nil {
			return nil, err
		}
		if issue.CustomFields == nil {
			issue.CustomFields = map[string]string{}
		}
		for k, v := range req.CustomFields {
			issue.CustomFields[k] = v
		}
	}
	issue.UpdatedAt = utc.Now()

	if err := s.persist(projectPath, &issue.Metadata, issue.Body); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("issue", id).Msg("issue updated")
	return issue, nil
}

// Delete removes an issue folder and untracks its files.
func (s *Service) Delete(ctx context.Context, projectPath, id string) error {
	unlock := s.locks.Lock(projectPath)
	defer unlock()

	if _, err := s.requireInit(projectPath); err != nil {
		return err
	}

	dir := s.issueDir(projectPath, id)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("issue", id)
		}
		return errors.WrapIO("stat", dir, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return errors.WrapIO("delete", dir, err)
	}

	store := manifest.NewStore(projectPath)
	m, err := store.LoadRequired()
	if err != nil {
		return err
	}
	prefix := "issues/" + id + "/"
	for _, entry := range append([]manifest.Entry(nil), m.ManagedFiles...) {
		if strings.HasPrefix(entry.Path, prefix) {
			m.Remove(entry.Path)
		}
	}
	if err := store.Save(m); err != nil {
		return err
	}

	logging.Ctx(ctx).Info().Str("issue", id).Msg("issue deleted")
	return nil
}

func (s *Service) requireInit(projectPath string) (*projconfig.Config, error) {
	if !manifest.Exists(projectPath) {
		return nil, errors.NewNotInitializedError(projectPath)
	}
	return projconfig.Read(projectPath)
}

func (s *Service) issuesRoot(projectPath string) string {
	return filepath.Join(manifest.CentyPath(projectPath), constants.IssuesDir)
}

func (s *Service) issueDir(projectPath, id string) string {
	return filepath.Join(s.issuesRoot(projectPath), id)
}

// nextDisplayNumber scans existing metadata for the highest display
// number. Issue creation holds the exclusive project lock, so the scan
// and the subsequent write are atomic with respect to other creators.
func (s *Service) nextDisplayNumber(projectPath string, levels int) int {
	highest := 0
	dirEntries, err := os.ReadDir(s.issuesRoot(projectPath))
	if err != nil {
		return 1
	}
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		meta, err := readMetadata(filepath.Join(s.issueDir(projectPath, de.Name()), metadataFileName), levels)
		if err != nil {
			continue
		}
		if meta.DisplayNumber > highest {
			highest = meta.DisplayNumber
		}
	}
	return highest + 1
}

func (s *Service) read(projectPath, id string, levels int) (*Issue, error) {
	dir := s.issueDir(projectPath, id)
	meta, err := readMetadata(filepath.Join(dir, metadataFileName), levels)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("issue", id)
		}
		return nil, err
	}

	body, err := os.ReadFile(filepath.Join(dir, bodyFileName))
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.WrapIO("read", filepath.Join(dir, bodyFileName), err)
	}
	return &Issue{Metadata: *meta, Body: string(body)}, nil
}

// renderBody produces the issue document: a user template when one is
// requested, otherwise the built-in layout.
func (s *Service) renderBody(projectPath string, cfg *projconfig.Config, meta *Metadata, template string) (string, error) {
	if template != "" {
		return templates.RenderIssue(projectPath, template, &templates.IssueContext{
			Title:         meta.Title,
			Description:   meta.Description,
			Priority:      int(meta.Priority),
			PriorityLabel: meta.Priority.Label(cfg.PriorityLevels),
			Status:        meta.Status,
			CreatedAt:     meta.CreatedAt.String(),
			CustomFields:  meta.CustomFields,
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.Title)
	if meta.Description != "" {
		fmt.Fprintf(&b, "%s\n", meta.Description)
	}
	return b.String(), nil
}

// persist writes both issue documents and records their hashes in the
// manifest in one save.
func (s *Service) persist(projectPath string, meta *Metadata, body string) error {
	dir := s.issueDir(projectPath, meta.ID)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.WrapResource("encode", "issue", meta.ID, err)
	}
	metaBytes = append(metaBytes, '\n')

	if err := writeFileAtomic(filepath.Join(dir, bodyFileName), []byte(body)); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, metadataFileName), metaBytes); err != nil {
		return err
	}

	store := manifest.NewStore(projectPath)
	m, err := store.LoadRequired()
	if err != nil {
		return err
	}
	rel := "issues/" + meta.ID + "/"
	m.Upsert(manifest.NewEntry(rel+bodyFileName, manifest.KindIssueBody, hashing.DigestString(body)))
	m.Upsert(manifest.NewEntry(rel+metadataFileName, manifest.KindIssueMetadata, hashing.Digest(metaBytes)))
	return store.Save(m)
}

func validateCustomFields(cfg *projconfig.Config, fields map[string]string) error {
	declared := make(map[string]projconfig.CustomField, len(cfg.CustomFields))
	for _, f := range cfg.CustomFields {
		declared[f.Name] = f
	}
	for name, value := range fields {
		f, ok := declared[name]
		if !ok {
			return errors.NewValidationError(name, value, "unknown custom field")
		}
		if len(f.EnumValues) > 0 {
			valid := false
			for _, allowed := range f.EnumValues {
				if value == allowed {
					valid = true
					break
				}
			}
			if !valid {
				return errors.NewValidationError(name, value, "value not in enum")
			}
		}
	}
	for _, f := range cfg.CustomFields {
		if f.Required && f.DefaultValue == "" {
			if _, ok := fields[f.Name]; !ok {
				return errors.NewValidationError(f.Name, nil, "required custom field missing")
			}
		}
	}
	return nil
}

func applyFieldDefaults(cfg *projconfig.Config, fields map[string]string) map[string]string {
	out := map[string]string{}
	for _, f := range cfg.CustomFields {
		if f.DefaultValue != "" {
			out[f.Name] = f.DefaultValue
		}
	}
	for k, v := range fields {
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// readMetadata loads a metadata sidecar. The priority field is decoded
// separately so label values written by earlier versions migrate to the
// numeric form instead of failing the whole document.
func readMetadata(path string, levels int) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Metadata
		Priority json.RawMessage `json:"priority"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	meta := doc.Metadata
	if len(doc.Priority) > 0 {
		meta.Priority = migratePriority(doc.Priority, levels)
	}
	return &meta, nil
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
