// Package reconcile implements the reconciliation engine: it compares the
// desired structure of a project's .centy tree (derived from templates
// and configuration) against the actual on-disk files and the previously
// recorded manifest, computes a plan of required operations, and executes
// that plan under explicit caller decisions for conflicting files.
//
// Three independent kinds of drift are detected and kept apart: template
// changes, external edits, and deletions. The manifest hash is the last
// state the engine itself wrote; comparing disk-to-manifest isolates user
// edits from template drift, so an automatic update never silently
// clobbers a hand edit.
package reconcile

import (
	"sort"
	"strings"

	"github.com/agentstation/utc"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/hashing"
	"github.com/centy-io/centy-daemon/pkg/manifest"
	"github.com/centy-io/centy-daemon/pkg/templates"
)

// OperationKind classifies what a plan operation will do.
type OperationKind string

// Operation kinds.
const (
	// OpCreate writes a file or directory that exists nowhere yet.
	OpCreate OperationKind = "create"

	// OpAutoUpdate applies a template change to a file with no local
	// edits; no decision is required.
	OpAutoUpdate OperationKind = "auto-update"

	// OpConflict marks a local edit; the caller's decision governs,
	// even when the template changed too.
	OpConflict OperationKind = "conflict"

	// OpMissing marks a tracked file deleted externally; the caller
	// decides between untracking and recreating it.
	OpMissing OperationKind = "missing"

	// OpSkip means nothing to do.
	OpSkip OperationKind = "skip"

	// OpAdopt tracks an existing foreign file that matches a managed
	// naming pattern, without modifying its content.
	OpAdopt OperationKind = "adopt"
)

// NeedsDecision reports whether this kind requires a caller decision.
func (k OperationKind) NeedsDecision() bool {
	return k == OpConflict || k == OpMissing
}

// Decision is a per-conflict choice submitted by the caller.
type Decision string

// Caller decisions for conflict and missing operations.
const (
	DecisionOverwrite Decision = "overwrite"
	DecisionKeep      Decision = "keep"
	DecisionDelete    Decision = "delete"
	DecisionSkip      Decision = "skip"
)

// Decisions maps operation target paths to caller decisions. Absent
// decisions default to Skip, a deliberate do-no-harm default.
type Decisions map[string]Decision

// Get returns the decision for a path, defaulting to Skip.
func (d Decisions) Get(path string) Decision {
	if d == nil {
		return DecisionSkip
	}
	if dec, ok := d[path]; ok {
		return dec
	}
	return DecisionSkip
}

// Operation is one step of a reconciliation plan. The captured hashes
// are a snapshot: the executor re-reads disk state before acting.
type Operation struct {
	Path          string                `json:"path"`
	FileKind      manifest.FileKind     `json:"fileKind"`
	Kind          OperationKind         `json:"kind"`
	PreviousHash  string                `json:"previousHash,omitempty"`
	CanonicalHash string                `json:"canonicalHash,omitempty"`
	DiskHash      string                `json:"diskHash,omitempty"`
	Preview       string                `json:"preview,omitempty"`
}

// Plan is an immutable, ordered sequence of operations for one project.
// It is a value object, not a live cursor into the filesystem; staleness
// between plan generation and execution is detected at execute time, not
// prevented.
type Plan struct {
	ProjectPath string      `json:"projectPath"`
	GeneratedAt utc.Time    `json:"generatedAt"`
	Operations  []Operation `json:"operations"`
}

// NeedsDecisions reports whether any operation requires a caller decision.
func (p *Plan) NeedsDecisions() bool {
	for _, op := range p.Operations {
		if op.Kind.NeedsDecision() {
			return true
		}
	}
	return false
}

// Pending returns the operations that still require a decision.
func (p *Plan) Pending() []Operation {
	var pending []Operation
	for _, op := range p.Operations {
		if op.Kind.NeedsDecision() {
			pending = append(pending, op)
		}
	}
	return pending
}

// ActionableCount returns the number of operations that are not skips.
func (p *Plan) ActionableCount() int {
	n := 0
	for _, op := range p.Operations {
		if op.Kind != OpSkip {
			n++
		}
	}
	return n
}

// slot is one managed file candidate considered by the plan builder: the
// union of manifest entries, matching on-disk files, and files the
// template provider declares should exist.
type slot struct {
	path         string
	kind         manifest.FileKind
	manifestHash string
	tracked      bool
	diskHash     string
	onDisk       bool
	isDir        bool
}

// buildPlan computes the reconciliation plan for a loaded manifest and
// template provider. Read-only: neither manifest nor disk is mutated.
func buildPlan(projectPath string, m *manifest.Manifest, provider templates.Provider) (*Plan, error) {
	scanned, err := Scan(projectPath)
	if err != nil {
		return nil, err
	}

	slots := collectSlots(m, scanned, provider)

	plan := &Plan{
		ProjectPath: projectPath,
		GeneratedAt: utc.Now(),
		Operations:  make([]Operation, 0, len(slots)),
	}

	for _, s := range slots {
		plan.Operations = append(plan.Operations, classify(s, provider))
	}

	sortOperations(plan.Operations)
	return plan, nil
}

// collectSlots unions the three sources of managed file candidates.
func collectSlots(m *manifest.Manifest, scanned map[string]ScanEntry, provider templates.Provider) map[string]*slot {
	slots := make(map[string]*slot)

	get := func(path string, kind manifest.FileKind) *slot {
		s, ok := slots[path]
		if !ok {
			s = &slot{path: path, kind: kind, isDir: kind.IsDirectory() || strings.HasSuffix(path, "/")}
			slots[path] = s
		}
		if s.kind == "" {
			s.kind = kind
		}
		return s
	}

	// Files the template provider declares should exist.
	for _, f := range provider.DesiredFiles() {
		get(f.Path, f.Kind)
	}

	// Every tracked entry in the manifest.
	for _, e := range m.ManagedFiles {
		s := get(e.Path, e.Kind)
		s.tracked = true
		s.manifestHash = e.Hash
	}

	// Every on-disk file matching a known managed naming pattern.
	// Foreign files outside the declared structure stay untouched.
	for path, entry := range scanned {
		kind, managed := templates.KindFor(path)
		if s, ok := slots[path]; ok {
			s.onDisk = true
			s.diskHash = entry.Hash
			s.isDir = entry.IsDir
			continue
		}
		if !managed {
			continue
		}
		s := get(path, kind)
		s.onDisk = true
		s.diskHash = entry.Hash
		s.isDir = entry.IsDir
	}

	return slots
}

// classify applies the decision table to one slot. First matching rule
// wins; local edits always take precedence over template drift.
func classify(s *slot, provider templates.Provider) Operation {
	op := Operation{
		Path:     s.path,
		FileKind: s.kind,
	}

	var canonicalHash string
	var preview string
	if content, ok := provider.Canonical(s.kind, s.path); ok {
		canonicalHash = hashing.Digest(content)
		preview = contentPreview(content)
	}
	op.CanonicalHash = canonicalHash
	op.Preview = preview
	op.PreviousHash = s.manifestHash
	op.DiskHash = s.diskHash

	// Directories carry no content; existence is the whole contract.
	if s.isDir {
		switch {
		case !s.onDisk && !s.tracked:
			op.Kind = OpCreate
		case !s.onDisk && s.tracked:
			op.Kind = OpMissing
		case s.onDisk && !s.tracked:
			op.Kind = OpAdopt
		default:
			op.Kind = OpSkip
		}
		return op
	}

	switch {
	case !s.onDisk && !s.tracked:
		op.Kind = OpCreate

	case !s.onDisk && s.tracked:
		op.Kind = OpMissing

	case s.onDisk && !s.tracked:
		op.Kind = OpAdopt

	case s.diskHash == s.manifestHash && (canonicalHash == "" || canonicalHash == s.manifestHash):
		op.Kind = OpSkip

	case s.diskHash == s.manifestHash:
		// No local edits, template changed: safe to apply unasked.
		op.Kind = OpAutoUpdate

	default:
		// diskHash != manifestHash: a local edit exists. The caller's
		// choice governs regardless of canonical drift.
		op.Kind = OpConflict
	}
	return op
}

// sortOperations orders a plan deterministically: lexicographic by path,
// which places every directory (trailing slash) before the files inside
// it.
func sortOperations(ops []Operation) {
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Path < ops[j].Path
	})
}

// contentPreview returns the leading characters of canonical content
// surfaced to callers deciding about an operation.
func contentPreview(content []byte) string {
	runes := []rune(string(content))
	if len(runes) <= constants.ContentPreviewLength {
		return string(runes)
	}
	return string(runes[:constants.ContentPreviewLength])
}
