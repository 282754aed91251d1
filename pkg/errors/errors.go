// Package errors provides custom error types for the centy daemon.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As are aliases for the standard library equivalents so callers
// do not need to import both packages.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the centy daemon
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotInitialized indicates an operation on a project path that has
	// no manifest yet; recoverable by calling Init first
	ErrNotInitialized = errors.New("project not initialized")

	// ErrCorruptManifest indicates the manifest document failed to parse
	// or validate; never auto-repaired
	ErrCorruptManifest = errors.New("corrupt manifest")

	// ErrStalePlan indicates disk state diverged between plan generation
	// and execution
	ErrStalePlan = errors.New("stale plan")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NotInitializedError indicates a project path with no manifest.
type NotInitializedError struct {
	ProjectPath string
}

// Error implements the error interface
func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("project at %s is not initialized; run Init first", e.ProjectPath)
}

// Is implements errors.Is support
func (e *NotInitializedError) Is(target error) bool {
	return target == ErrNotInitialized
}

// NewNotInitializedError creates a new NotInitializedError
func NewNotInitializedError(projectPath string) *NotInitializedError {
	return &NotInitializedError{ProjectPath: projectPath}
}

// CorruptManifestError indicates a manifest document that cannot be
// parsed or that fails validation. The manifest is never repaired
// silently; losing tracked-hash history would be worse than failing.
type CorruptManifestError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *CorruptManifestError) Error() string {
	return fmt.Sprintf("corrupt manifest at %s: %s", e.Path, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *CorruptManifestError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *CorruptManifestError) Is(target error) bool {
	return target == ErrCorruptManifest
}

// NewCorruptManifestError creates a new CorruptManifestError
func NewCorruptManifestError(path, message string, err error) *CorruptManifestError {
	return &CorruptManifestError{Path: path, Message: message, Err: err}
}

// StalePlanError indicates an operation whose on-disk state changed
// between plan generation and execution.
type StalePlanError struct {
	Path         string
	PlannedHash  string
	ObservedHash string
}

// Error implements the error interface
func (e *StalePlanError) Error() string {
	return fmt.Sprintf("stale plan for %s: planned hash %s, observed %s", e.Path, e.PlannedHash, e.ObservedHash)
}

// Is implements errors.Is support
func (e *StalePlanError) Is(target error) bool {
	return target == ErrStalePlan
}

// NewStalePlanError creates a new stale plan error
func NewStalePlanError(path, plannedHash, observedHash string) *StalePlanError {
	return &StalePlanError{Path: path, PlannedHash: plannedHash, ObservedHash: observedHash}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "rename"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "update", "delete", "fetch"
	Resource  string // "manifest", "issue", "doc", "config"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// TemplateError represents a failure rendering canonical or user content
type TemplateError struct {
	Template string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *TemplateError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("template error in %s: %s", e.Template, e.Message)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotInitialized checks if an error indicates an uninitialized project
func IsNotInitialized(err error) bool {
	return errors.Is(err, ErrNotInitialized)
}

// IsCorruptManifest checks if an error indicates a corrupt manifest
func IsCorruptManifest(err error) bool {
	return errors.Is(err, ErrCorruptManifest)
}

// IsStalePlan checks if an error indicates plan staleness
func IsStalePlan(err error) bool {
	return errors.Is(err, ErrStalePlan)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
