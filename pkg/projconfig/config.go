// Package projconfig reads the per-project configuration document stored
// in the .centy directory. The engine consumes this configuration (custom
// fields, defaults, body format) but never mutates it during
// reconciliation.
package projconfig

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/errors"
)

// BodyFormat selects the markup format used for generated file bodies.
type BodyFormat string

// Supported body formats.
const (
	FormatMarkdown BodyFormat = "markdown"
	FormatAsciiDoc BodyFormat = "asciidoc"
)

// Extension returns the file extension for the format, dot included.
func (f BodyFormat) Extension() string {
	if f == FormatAsciiDoc {
		return ".adoc"
	}
	return ".md"
}

// CustomField defines one user-declared metadata field for issues.
type CustomField struct {
	Name         string   `json:"name" yaml:"name"`
	Type         string   `json:"type" yaml:"type"`
	Required     bool     `json:"required,omitempty" yaml:"required,omitempty"`
	DefaultValue string   `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	EnumValues   []string `json:"enumValues,omitempty" yaml:"enumValues,omitempty"`
}

// Config is the project configuration document.
type Config struct {
	CustomFields   []CustomField     `json:"customFields,omitempty" yaml:"customFields,omitempty"`
	Defaults       map[string]string `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	PriorityLevels int               `json:"priorityLevels,omitempty" yaml:"priorityLevels,omitempty"`
	DefaultState   string            `json:"defaultState,omitempty" yaml:"defaultState,omitempty"`
	AllowedStates  []string          `json:"allowedStates,omitempty" yaml:"allowedStates,omitempty"`
	Format         BodyFormat        `json:"format,omitempty" yaml:"format,omitempty"`
}

// Default returns the configuration used when a project has no config
// document or leaves fields unset.
func Default() *Config {
	return &Config{
		Defaults:       map[string]string{},
		PriorityLevels: 3,
		DefaultState:   "open",
		AllowedStates:  []string{"open", "in-progress", "closed"},
		Format:         FormatMarkdown,
	}
}

// normalize fills unset fields with their defaults.
func (c *Config) normalize() {
	d := Default()
	if c.Defaults == nil {
		c.Defaults = map[string]string{}
	}
	if c.PriorityLevels <= 0 {
		c.PriorityLevels = d.PriorityLevels
	}
	if c.DefaultState == "" {
		c.DefaultState = d.DefaultState
	}
	if len(c.AllowedStates) == 0 {
		c.AllowedStates = d.AllowedStates
	}
	if c.Format == "" {
		c.Format = d.Format
	}
}

// jsonPath returns the JSON config document path for a project.
func jsonPath(projectPath string) string {
	return filepath.Join(projectPath, constants.CentyDir, constants.ConfigFileJSON)
}

// yamlPath returns the YAML config document path for a project.
func yamlPath(projectPath string) string {
	return filepath.Join(projectPath, constants.CentyDir, constants.ConfigFileYAML)
}

// Read loads the project configuration. The JSON document takes
// precedence; a YAML document is accepted as an alternative. When
// neither exists the defaults are returned.
func Read(projectPath string) (*Config, error) {
	if data, err := os.ReadFile(jsonPath(projectPath)); err == nil {
		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, errors.WrapParse("json", jsonPath(projectPath), err)
		}
		cfg.normalize()
		return &cfg, nil
	} else if !os.IsNotExist(err) {
		return nil, errors.WrapIO("read", jsonPath(projectPath), err)
	}

	if data, err := os.ReadFile(yamlPath(projectPath)); err == nil {
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.WrapParse("yaml", yamlPath(projectPath), err)
		}
		cfg.normalize()
		return &cfg, nil
	} else if !os.IsNotExist(err) {
		return nil, errors.WrapIO("read", yamlPath(projectPath), err)
	}

	return Default(), nil
}

// Write persists the configuration as the JSON document. Used by Init to
// seed a default config; reconciliation itself never calls this.
func Write(projectPath string, cfg *Config) error {
	dir := filepath.Join(projectPath, constants.CentyDir)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.WrapResource("encode", "config", projectPath, err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(jsonPath(projectPath), data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", jsonPath(projectPath), err)
	}
	return nil
}
