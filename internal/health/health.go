// Package health aggregates dependency probes into a single readiness
// verdict. Each probe is independent, bounded by a timeout, and never
// raises: failures are folded into the report as statuses, so the checker's
// public contract is that it always produces a structured answer.
//
// Criticality policy:
//   - database: always critical
//   - cache: never critical (session storage degrades to in-memory)
//   - workflow engine: critical only when enabled
//   - identity providers: critical only in the production environment
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gantryio/gantry/internal/config"
)

// Status is the health state of one dependency.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusDisabled  Status = "disabled"
)

// Overall is the aggregate readiness verdict.
type Overall string

const (
	Ready    Overall = "ready"
	NotReady Overall = "not_ready"
)

// Result is the outcome of one dependency probe. Optional fields carry
// dependency-specific metadata and are omitted when empty.
type Result struct {
	Status    Status            `json:"status"`
	Type      string            `json:"type,omitempty"`
	Note      string            `json:"note,omitempty"`
	Error     string            `json:"error,omitempty"`
	Issuer    string            `json:"issuer,omitempty"`
	Target    string            `json:"target,omitempty"`
	Namespace string            `json:"namespace,omitempty"`
	TaskQueue string            `json:"task_queue,omitempty"`
	Info      map[string]string `json:"info,omitempty"`
}

// Checks groups the per-dependency results. IdentityProviders is omitted
// entirely when no providers are configured.
type Checks struct {
	Database          Result            `json:"database"`
	Cache             Result            `json:"cache"`
	WorkflowEngine    Result            `json:"workflow_engine"`
	IdentityProviders map[string]Result `json:"identity_providers,omitempty"`
}

// Report is the aggregate readiness answer. Built fresh on every CheckAll;
// it carries no state between calls.
type Report struct {
	Status      Overall `json:"status"`
	Environment string  `json:"environment"`
	Checks      Checks  `json:"checks"`
}

// DatabaseProber is the database dependency contract.
type DatabaseProber interface {
	HealthCheck(ctx context.Context) error
	Type() string
}

// CacheProber is the remote cache dependency contract.
type CacheProber interface {
	Ping(ctx context.Context) bool
	Info(ctx context.Context) (map[string]string, error)
}

// WorkflowProber is the workflow engine dependency contract.
type WorkflowProber interface {
	HealthCheck(ctx context.Context) error
	Target() string
	Namespace() string
	TaskQueue() string
}

// KeySetFetcher probes one identity provider by fetching its key set.
type KeySetFetcher interface {
	FetchKeySet(ctx context.Context, p config.Provider) error
}

// DefaultProbeTimeout bounds each dependency probe so one hung dependency
// cannot stall the readiness endpoint.
const DefaultProbeTimeout = 5 * time.Second

// Checker performs the dependency probes. Construct with New; dependencies
// that are disabled in the configuration may be nil.
type Checker struct {
	cfg      *config.Config
	db       DatabaseProber
	cache    CacheProber
	workflow WorkflowProber
	keys     KeySetFetcher

	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Checker.
type Option func(*Checker)

// WithProbeTimeout overrides the per-probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Checker) { c.timeout = d }
}

// WithLogger attaches a logger for probe failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

// WithMetrics records probe durations and the readiness verdict.
func WithMetrics(m *Metrics) Option {
	return func(c *Checker) { c.metrics = m }
}

// New creates a Checker over explicit dependencies and configuration.
func New(cfg *config.Config, db DatabaseProber, cache CacheProber, wf WorkflowProber, keys KeySetFetcher, opts ...Option) *Checker {
	c := &Checker{
		cfg:      cfg,
		db:       db,
		cache:    cache,
		workflow: wf,
		keys:     keys,
		timeout:  DefaultProbeTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckAll probes every dependency concurrently and folds the results
// through the criticality policy. It never returns an error; a cancelled
// context surfaces as unhealthy probe results.
func (c *Checker) CheckAll(ctx context.Context) Report {
	var checks Checks

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		checks.Database = c.probe(ctx, "database", c.CheckDatabase)
	}()
	go func() {
		defer wg.Done()
		checks.Cache = c.probe(ctx, "cache", c.CheckCache)
	}()
	go func() {
		defer wg.Done()
		checks.WorkflowEngine = c.probe(ctx, "workflow_engine", c.CheckWorkflow)
	}()
	go func() {
		defer wg.Done()
		probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		start := time.Now()
		checks.IdentityProviders = c.CheckIdentityProviders(probeCtx)
		c.metrics.observe("identity_providers", time.Since(start))
	}()
	wg.Wait()

	status := c.verdict(checks)
	c.metrics.setReady(status == Ready)

	return Report{
		Status:      status,
		Environment: c.cfg.App.Environment,
		Checks:      checks,
	}
}

// probe runs one check under the per-probe timeout and records its duration.
func (c *Checker) probe(ctx context.Context, name string, check func(context.Context) Result) Result {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	result := check(probeCtx)
	c.metrics.observe(name, time.Since(start))

	if result.Status == StatusUnhealthy {
		c.logger.Warn("dependency unhealthy", "dependency", name, "error", result.Error)
	}
	return result
}

// CheckDatabase probes the relational store. The database is always
// critical and has no disabled state.
func (c *Checker) CheckDatabase(ctx context.Context) Result {
	if c.db == nil {
		return Result{Status: StatusUnhealthy, Error: "database service not initialized"}
	}
	if err := c.db.HealthCheck(ctx); err != nil {
		return Result{Status: StatusUnhealthy, Type: c.db.Type(), Error: err.Error()}
	}
	return Result{Status: StatusHealthy, Type: c.db.Type()}
}

// CheckCache probes the remote cache. The cache is never critical: session
// storage falls back to the in-process backend, so a failure degrades the
// service rather than breaking it.
func (c *Checker) CheckCache(ctx context.Context) Result {
	if !c.cfg.Redis.Enabled {
		return Result{
			Status: StatusDisabled,
			Type:   "in-memory",
			Note:   "redis is not enabled, using in-memory storage",
		}
	}
	if c.cache == nil {
		return Result{
			Status: StatusDegraded,
			Type:   "in-memory",
			Note:   "redis client not initialized, using in-memory storage",
		}
	}
	if !c.cache.Ping(ctx) {
		return Result{
			Status: StatusDegraded,
			Type:   "in-memory",
			Note:   "falling back to in-memory storage",
		}
	}
	return Result{Status: StatusHealthy, Type: "remote-cache"}
}

// CheckCacheDetailed is CheckCache plus server metadata for the diagnostic
// endpoint. Status derivation is identical.
func (c *Checker) CheckCacheDetailed(ctx context.Context) Result {
	result := c.CheckCache(ctx)
	if result.Status != StatusHealthy {
		return result
	}

	info, err := c.cache.Info(ctx)
	if err != nil {
		// The ping passed moments ago; treat a failed INFO as degraded
		// rather than flapping to unhealthy.
		result.Status = StatusDegraded
		result.Error = err.Error()
		return result
	}
	result.Info = info
	return result
}

// CheckWorkflow probes the workflow engine. Disabled engines never affect
// readiness; enabled engines are critical.
func (c *Checker) CheckWorkflow(ctx context.Context) Result {
	if !c.cfg.Workflow.Enabled {
		return Result{Status: StatusDisabled, Note: "workflow engine is not enabled"}
	}
	if c.workflow == nil {
		return Result{Status: StatusUnhealthy, Error: "workflow client not initialized"}
	}
	if err := c.workflow.HealthCheck(ctx); err != nil {
		return Result{Status: StatusUnhealthy, Error: err.Error()}
	}
	return Result{
		Status:    StatusHealthy,
		Target:    c.workflow.Target(),
		Namespace: c.workflow.Namespace(),
	}
}

// CheckWorkflowDetailed adds the task queue to the workflow check for the
// diagnostic endpoint. Status derivation is identical.
func (c *Checker) CheckWorkflowDetailed(ctx context.Context) Result {
	result := c.CheckWorkflow(ctx)
	if result.Status == StatusHealthy {
		result.TaskQueue = c.workflow.TaskQueue()
	}
	return result
}

// CheckIdentityProviders probes each configured provider independently.
// Returns nil when no providers are configured, which omits the section
// from the report entirely.
func (c *Checker) CheckIdentityProviders(ctx context.Context) map[string]Result {
	if len(c.cfg.Identity.Providers) == 0 {
		return nil
	}

	results := make(map[string]Result, len(c.cfg.Identity.Providers))
	for name, provider := range c.cfg.Identity.Providers {
		if err := c.keys.FetchKeySet(ctx, provider); err != nil {
			results[name] = Result{
				Status: StatusUnhealthy,
				Issuer: provider.Issuer,
				Error:  err.Error(),
			}
			continue
		}
		results[name] = Result{Status: StatusHealthy, Issuer: provider.Issuer}
	}
	return results
}

// verdict applies the criticality policy to the collected checks.
func (c *Checker) verdict(checks Checks) Overall {
	if checks.Database.Status == StatusUnhealthy {
		return NotReady
	}
	// Disabled engines never reach unhealthy, so this covers "enabled and
	// failing" exactly.
	if checks.WorkflowEngine.Status == StatusUnhealthy {
		return NotReady
	}
	if c.cfg.App.Environment == "production" {
		for _, provider := range checks.IdentityProviders {
			if provider.Status == StatusUnhealthy {
				return NotReady
			}
		}
	}
	// The cache is never consulted: it degrades, it does not fail.
	return Ready
}
