package reconcile

import (
	"context"
	"os"

	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/errors"
	"github.com/centy-io/centy-daemon/pkg/logging"
	"github.com/centy-io/centy-daemon/pkg/manifest"
	"github.com/centy-io/centy-daemon/pkg/projconfig"
	"github.com/centy-io/centy-daemon/pkg/templates"
)

// Service is the reconciliation entry point shared by the transport
// layer, the CLI, and the drift watcher. All project mutations go
// through its per-project locks: plans take a read lock, initialization
// and execution take the write lock, so plans never observe a half
// applied execution.
type Service struct {
	locks *LockRegistry
}

// NewService creates a reconciliation service with its own lock
// registry.
func NewService() *Service {
	return &Service{locks: NewLockRegistry()}
}

// Locks exposes the per-project lock registry so sibling subsystems
// that write into .centy (issue and doc CRUD) serialize against
// reconciliation runs.
func (s *Service) Locks() *LockRegistry {
	return s.locks
}

// IsInitialized reports whether the project has a .centy manifest.
func (s *Service) IsInitialized(projectPath string) bool {
	return manifest.Exists(projectPath)
}

// Init initializes a project: creates the .centy directory, seeds the
// managed structure and default configuration, and writes the initial
// manifest. Initializing an already-initialized project is a no-op
// success.
func (s *Service) Init(ctx context.Context, projectPath string) (*ExecutionReport, error) {
	unlock := s.locks.Lock(projectPath)
	defer unlock()

	log := logging.Ctx(ctx).With().Str("project", projectPath).Logger()

	if manifest.Exists(projectPath) {
		log.Debug().Msg("project already initialized")
		m, err := manifest.NewStore(projectPath).LoadRequired()
		if err != nil {
			return nil, err
		}
		return &ExecutionReport{ProjectPath: projectPath, Manifest: m}, nil
	}

	if err := os.MkdirAll(manifest.CentyPath(projectPath), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create centy directory", constants.CentyDir, err)
	}

	cfg := projconfig.Default()
	if err := projconfig.Write(projectPath, cfg); err != nil {
		return nil, err
	}

	m := manifest.New()
	store := manifest.NewStore(projectPath)
	if err := store.Save(m); err != nil {
		return nil, err
	}

	// The first reconciliation against an empty manifest creates every
	// desired file and adopts the freshly written config.
	provider := templates.New(cfg)
	plan, err := buildPlan(projectPath, m, provider)
	if err != nil {
		return nil, err
	}
	report, err := newExecutor(projectPath, m, provider).execute(plan, nil)
	if err != nil {
		return report, err
	}

	log.Info().Int("created", report.Applied).Msg("project initialized")
	return report, nil
}

// Plan computes the current reconciliation plan without mutating
// anything. Requires an initialized project.
func (s *Service) Plan(ctx context.Context, projectPath string) (*Plan, error) {
	unlock := s.locks.RLock(projectPath)
	defer unlock()

	m, provider, err := s.load(projectPath)
	if err != nil {
		return nil, err
	}
	plan, err := buildPlan(projectPath, m, provider)
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().
		Str("project", projectPath).
		Int("operations", len(plan.Operations)).
		Int("actionable", plan.ActionableCount()).
		Msg("plan generated")
	return plan, nil
}

// Execute applies a previously generated plan with the caller's
// decisions. Operations whose disk state drifted since planning fail
// individually as stale; everything else still applies.
func (s *Service) Execute(ctx context.Context, plan *Plan, decisions Decisions) (*ExecutionReport, error) {
	if plan == nil {
		return nil, errors.NewValidationError("plan", nil, "plan is required")
	}
	unlock := s.locks.Lock(plan.ProjectPath)
	defer unlock()

	m, provider, err := s.load(plan.ProjectPath)
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("project", plan.ProjectPath).
		Int("operations", len(plan.Operations)).
		Msg("executing reconciliation plan")
	return newExecutor(plan.ProjectPath, m, provider).execute(plan, decisions)
}

// Reconcile plans and executes in one locked pass, applying the given
// decisions. Used by Init and by callers that do not need to inspect
// the plan first.
func (s *Service) Reconcile(ctx context.Context, projectPath string, decisions Decisions) (*ExecutionReport, error) {
	unlock := s.locks.Lock(projectPath)
	defer unlock()

	m, provider, err := s.load(projectPath)
	if err != nil {
		return nil, err
	}
	plan, err := buildPlan(projectPath, m, provider)
	if err != nil {
		return nil, err
	}
	return newExecutor(projectPath, m, provider).execute(plan, decisions)
}

// Manifest returns the tracked state for an initialized project.
func (s *Service) Manifest(projectPath string) (*manifest.Manifest, error) {
	unlock := s.locks.RLock(projectPath)
	defer unlock()

	store := manifest.NewStore(projectPath)
	return store.LoadRequired()
}

// Config returns the project configuration, with defaults filled in for
// any omitted fields. Requires an initialized project.
func (s *Service) Config(projectPath string) (*projconfig.Config, error) {
	unlock := s.locks.RLock(projectPath)
	defer unlock()

	if !manifest.Exists(projectPath) {
		return nil, errors.NewNotInitializedError(projectPath)
	}
	return projconfig.Read(projectPath)
}

func (s *Service) load(projectPath string) (*manifest.Manifest, templates.Provider, error) {
	store := manifest.NewStore(projectPath)
	m, err := store.LoadRequired()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := projconfig.Read(projectPath)
	if err != nil {
		return nil, nil, err
	}
	return m, templates.New(cfg), nil
}
