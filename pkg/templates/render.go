package templates

import (
	"os"
	"path/filepath"

	"github.com/aymerick/raymond"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/errors"
	"github.com/centy-io/centy-daemon/pkg/manifest"
)

// TemplateType selects the user template folder to search.
type TemplateType string

// User template types.
const (
	TypeIssue TemplateType = "issues"
	TypeDoc   TemplateType = "docs"
)

// IssueContext carries the placeholder values for issue templates.
// Placeholders: {{title}}, {{description}}, {{priority}},
// {{priorityLabel}}, {{status}}, {{createdAt}} and any custom field name.
type IssueContext struct {
	Title         string
	Description   string
	Priority      int
	PriorityLabel string
	Status        string
	CreatedAt     string
	CustomFields  map[string]string
}

// DocContext carries the placeholder values for doc templates.
// Placeholders: {{title}}, {{content}}, {{slug}}, {{createdAt}},
// {{updatedAt}}.
type DocContext struct {
	Title     string
	Content   string
	Slug      string
	CreatedAt string
	UpdatedAt string
}

// TemplatesPath returns the user templates directory for a project.
func TemplatesPath(projectPath string) string {
	return filepath.Join(manifest.CentyPath(projectPath), constants.TemplatesDir)
}

// loadTemplate reads "<name>.md" from the template type's folder.
func loadTemplate(projectPath string, tt TemplateType, name string) (string, error) {
	file := filepath.Join(TemplatesPath(projectPath), string(tt), name+".md")
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &errors.TemplateError{Template: name, Message: "template not found"}
		}
		return "", errors.WrapIO("read", file, err)
	}
	return string(data), nil
}

// RenderIssue renders a user issue template with handlebars placeholders.
func RenderIssue(projectPath, name string, ctx *IssueContext) (string, error) {
	source, err := loadTemplate(projectPath, TypeIssue, name)
	if err != nil {
		return "", err
	}

	vars := map[string]interface{}{
		"title":         ctx.Title,
		"description":   ctx.Description,
		"priority":      ctx.Priority,
		"priorityLabel": ctx.PriorityLabel,
		"status":        ctx.Status,
		"createdAt":     ctx.CreatedAt,
	}
	for k, v := range ctx.CustomFields {
		vars[k] = v
	}

	out, err := raymond.Render(source, vars)
	if err != nil {
		return "", &errors.TemplateError{Template: name, Message: "render failure", Err: err}
	}
	return out, nil
}

// RenderDoc renders a user doc template with handlebars placeholders.
func RenderDoc(projectPath, name string, ctx *DocContext) (string, error) {
	source, err := loadTemplate(projectPath, TypeDoc, name)
	if err != nil {
		return "", err
	}

	out, err := raymond.Render(source, map[string]interface{}{
		"title":     ctx.Title,
		"content":   ctx.Content,
		"slug":      ctx.Slug,
		"createdAt": ctx.CreatedAt,
		"updatedAt": ctx.UpdatedAt,
	})
	if err != nil {
		return "", &errors.TemplateError{Template: name, Message: "render failure", Err: err}
	}
	return out, nil
}
