// Package constants provides shared constants used throughout the centy
// daemon. This includes well-known file names, timeouts, and file
// permissions that should be consistent across the application.
package constants

import "time"

// Well-known names inside a project directory.
const (
	// CentyDir is the name of the managed control directory.
	CentyDir = ".centy"

	// ManifestFile is the name of the manifest document inside CentyDir.
	ManifestFile = ".centy-manifest.json"

	// ConfigFileJSON is the JSON project configuration document.
	ConfigFileJSON = "config.json"

	// ConfigFileYAML is the YAML project configuration document,
	// accepted as an alternative to ConfigFileJSON.
	ConfigFileYAML = "config.yaml"

	// IssuesDir holds one folder per issue, named by issue ID.
	IssuesDir = "issues"

	// DocsDir holds slug-addressed documentation files.
	DocsDir = "docs"

	// AssetsDir holds shared project assets.
	AssetsDir = "assets"

	// TemplatesDir holds user-provided issue and doc templates.
	TemplatesDir = "templates"
)

// ManifestSchemaVersion is the current manifest schema version.
const ManifestSchemaVersion = 1

// Version is the daemon version recorded in manifests it writes.
const Version = "0.1.0"

// File permission constants define standard Unix file permissions.
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Timeout constants define various timeout durations used in the application.
const (
	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// ShutdownTimeout is the grace period for HTTP server shutdown
	ShutdownTimeout = 5 * time.Second

	// WatcherDebounce is the settle window for filesystem drift events
	WatcherDebounce = 250 * time.Millisecond
)

// Limit constants define various limits and capacities.
const (
	// MaxTitleLength is the maximum allowed length for issue and doc titles
	MaxTitleLength = 256

	// ContentPreviewLength is the number of characters of canonical
	// content surfaced in plan operations
	ContentPreviewLength = 100

	// EventBufferSize is the capacity of event broker channels
	EventBufferSize = 256
)
