// Package templates supplies canonical content for managed files and
// renders user-provided issue and doc templates. The provider answers two
// questions for the reconciliation engine: which files should exist for
// the current configuration, and what their canonical bytes are. A file
// whose content is caller-owned has no canonical form.
package templates

import (
	"path"
	"strings"

	"github.com/centy-io/centy-daemon/pkg/manifest"
	"github.com/centy-io/centy-daemon/pkg/projconfig"
)

// DesiredFile is one slot the provider declares should exist.
type DesiredFile struct {
	Path string
	Kind manifest.FileKind
}

// Provider yields canonical desired content for managed file kinds.
type Provider interface {
	// DesiredFiles lists the files and directories that must exist for
	// the current configuration, directories first.
	DesiredFiles() []DesiredFile

	// Canonical returns the canonical bytes for a managed path, or
	// ok=false when the content is caller-owned (issue bodies, docs,
	// assets, the config document).
	Canonical(kind manifest.FileKind, relPath string) (content []byte, ok bool)
}

// provider is the default Provider, parameterized by project config.
type provider struct {
	format projconfig.BodyFormat
}

// New creates a Provider for the given project configuration.
func New(cfg *projconfig.Config) Provider {
	format := projconfig.FormatMarkdown
	if cfg != nil && cfg.Format != "" {
		format = cfg.Format
	}
	return &provider{format: format}
}

// readmeName returns the README file name for the configured format.
func (p *provider) readmeName() string {
	return "README" + p.format.Extension()
}

// DesiredFiles lists the default managed structure.
func (p *provider) DesiredFiles() []DesiredFile {
	return []DesiredFile{
		{Path: "assets/", Kind: manifest.KindDirectory},
		{Path: "docs/", Kind: manifest.KindDirectory},
		{Path: "issues/", Kind: manifest.KindDirectory},
		{Path: "templates/", Kind: manifest.KindDirectory},
		{Path: p.readmeName(), Kind: manifest.KindReadme},
	}
}

// Canonical returns template-derived content for kinds that have one.
// Directories have no content but are still canonical (ok=true with nil
// bytes is not used; directories are special-cased by the executor), so
// only the readme reports canonical bytes here.
func (p *provider) Canonical(kind manifest.FileKind, _ string) ([]byte, bool) {
	switch kind {
	case manifest.KindReadme:
		if p.format == projconfig.FormatAsciiDoc {
			return []byte(readmeAsciiDoc), true
		}
		return []byte(readmeMarkdown), true
	default:
		// Issue bodies, metadata, docs, assets and the config document
		// are caller-owned; the engine only tracks their hashes.
		return nil, false
	}
}

// KindFor matches a relative path inside .centy against the known
// managed naming patterns. It reports ok=false for paths the engine does
// not manage (foreign user files outside the declared structure).
func KindFor(relPath string) (manifest.FileKind, bool) {
	if strings.HasSuffix(relPath, "/") {
		return manifest.KindDirectory, true
	}

	base := path.Base(relPath)
	switch {
	case relPath == "README.md" || relPath == "README.adoc":
		return manifest.KindReadme, true
	case relPath == "config.json" || relPath == "config.yaml":
		return manifest.KindConfig, true
	}

	parts := strings.Split(relPath, "/")
	switch parts[0] {
	case "issues":
		// issues/<id>/issue.md, issues/<id>/metadata.json, issues/<id>/assets/*
		if len(parts) == 3 && base == "issue.md" {
			return manifest.KindIssueBody, true
		}
		if len(parts) == 3 && base == "metadata.json" {
			return manifest.KindIssueMetadata, true
		}
		if len(parts) >= 4 && parts[2] == "assets" {
			return manifest.KindAsset, true
		}
	case "docs":
		if len(parts) == 2 && (strings.HasSuffix(base, ".md") || strings.HasSuffix(base, ".adoc")) {
			return manifest.KindDoc, true
		}
	case "assets", "templates":
		if len(parts) >= 2 {
			return manifest.KindAsset, true
		}
	}
	return "", false
}

const readmeMarkdown = `# Centy Project

This folder is managed by [Centy](https://centy.io).

## Structure

- ` + "`issues/`" + ` - Project issues
- ` + "`docs/`" + ` - Project documentation
- ` + "`assets/`" + ` - Shared assets
- ` + "`templates/`" + ` - Issue and doc templates

## Getting Started

Create a new issue:

` + "```bash\ncenty create issue\n```" + `

View all issues in the ` + "`issues/`" + ` folder.
`

const readmeAsciiDoc = `= Centy Project

This folder is managed by https://centy.io[Centy].

== Structure

* ` + "`issues/`" + ` - Project issues
* ` + "`docs/`" + ` - Project documentation
* ` + "`assets/`" + ` - Shared assets
* ` + "`templates/`" + ` - Issue and doc templates

== Getting Started

Create a new issue:

[source,bash]
----
centy create issue
----

View all issues in the ` + "`issues/`" + ` folder.
`
