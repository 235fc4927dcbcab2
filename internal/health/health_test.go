package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantryio/gantry/internal/config"
	"github.com/gantryio/gantry/internal/health"
	"github.com/gantryio/gantry/internal/logging"
)

type fakeDB struct {
	err error
}

func (f *fakeDB) HealthCheck(ctx context.Context) error { return f.err }
func (f *fakeDB) Type() string                          { return "sqlite" }

type fakeCache struct {
	up      bool
	info    map[string]string
	infoErr error
}

func (f *fakeCache) Ping(ctx context.Context) bool { return f.up }
func (f *fakeCache) Info(ctx context.Context) (map[string]string, error) {
	return f.info, f.infoErr
}

type fakeWorkflow struct {
	err error
}

func (f *fakeWorkflow) HealthCheck(ctx context.Context) error { return f.err }
func (f *fakeWorkflow) Target() string                        { return "engine:7233" }
func (f *fakeWorkflow) Namespace() string                     { return "default" }
func (f *fakeWorkflow) TaskQueue() string                     { return "gantry-tasks" }

type fakeKeys struct {
	failing map[string]error // keyed by issuer
}

func (f *fakeKeys) FetchKeySet(ctx context.Context, p config.Provider) error {
	return f.failing[p.Issuer]
}

func testConfig(environment string) *config.Config {
	return &config.Config{
		App:      config.App{Name: "gantry", Environment: environment},
		Redis:    config.Redis{Enabled: true, URL: "redis://localhost:6379/0"},
		Workflow: config.Workflow{Enabled: true, Target: "engine:7233"},
		Identity: config.Identity{
			Providers: map[string]config.Provider{
				"main": {Issuer: "https://auth.example.com"},
			},
		},
	}
}

func newChecker(cfg *config.Config, db *fakeDB, cache *fakeCache, wf *fakeWorkflow, keys *fakeKeys, opts ...health.Option) *health.Checker {
	opts = append(opts, health.WithLogger(logging.NewNop()))
	return health.New(cfg, db, cache, wf, keys, opts...)
}

func TestCheckAll_AllHealthy(t *testing.T) {
	checker := newChecker(testConfig("development"),
		&fakeDB{}, &fakeCache{up: true}, &fakeWorkflow{}, &fakeKeys{})

	report := checker.CheckAll(context.Background())

	assert.Equal(t, health.Ready, report.Status)
	assert.Equal(t, "development", report.Environment)
	assert.Equal(t, health.StatusHealthy, report.Checks.Database.Status)
	assert.Equal(t, health.StatusHealthy, report.Checks.Cache.Status)
	assert.Equal(t, "remote-cache", report.Checks.Cache.Type)
	assert.Equal(t, health.StatusHealthy, report.Checks.WorkflowEngine.Status)
	assert.Equal(t, "engine:7233", report.Checks.WorkflowEngine.Target)
	assert.Equal(t, health.StatusHealthy, report.Checks.IdentityProviders["main"].Status)
}

func TestCheckAll_DatabaseDown(t *testing.T) {
	checker := newChecker(testConfig("development"),
		&fakeDB{err: errors.New("Connection refused")},
		&fakeCache{up: true}, &fakeWorkflow{}, &fakeKeys{})

	report := checker.CheckAll(context.Background())

	assert.Equal(t, health.NotReady, report.Status)
	assert.Equal(t, health.StatusUnhealthy, report.Checks.Database.Status)
	assert.Equal(t, "Connection refused", report.Checks.Database.Error)
}

func TestCheckAll_CacheDownIsNeverCritical(t *testing.T) {
	checker := newChecker(testConfig("development"),
		&fakeDB{}, &fakeCache{up: false}, &fakeWorkflow{}, &fakeKeys{})

	report := checker.CheckAll(context.Background())

	assert.Equal(t, health.Ready, report.Status, "a failing cache must not flip readiness")
	assert.Equal(t, health.StatusDegraded, report.Checks.Cache.Status)
	assert.Equal(t, "in-memory", report.Checks.Cache.Type)
	assert.Contains(t, report.Checks.Cache.Note, "falling back")
}

func TestCheckAll_CacheDisabled(t *testing.T) {
	cfg := testConfig("development")
	cfg.Redis.Enabled = false
	checker := newChecker(cfg, &fakeDB{}, nil, &fakeWorkflow{}, &fakeKeys{})

	report := checker.CheckAll(context.Background())

	assert.Equal(t, health.Ready, report.Status)
	assert.Equal(t, health.StatusDisabled, report.Checks.Cache.Status)
	assert.Equal(t, "in-memory", report.Checks.Cache.Type)
}

func TestCheckAll_WorkflowDisabled(t *testing.T) {
	cfg := testConfig("development")
	cfg.Workflow.Enabled = false
	checker := newChecker(cfg, &fakeDB{}, &fakeCache{up: true}, nil, &fakeKeys{})

	report := checker.CheckAll(context.Background())

	assert.Equal(t, health.Ready, report.Status)
	assert.Equal(t, health.StatusDisabled, report.Checks.WorkflowEngine.Status)
}

func TestCheckAll_WorkflowDownWhenEnabled(t *testing.T) {
	checker := newChecker(testConfig("development"),
		&fakeDB{}, &fakeCache{up: true},
		&fakeWorkflow{err: errors.New("engine unreachable")}, &fakeKeys{})

	report := checker.CheckAll(context.Background())

	assert.Equal(t, health.NotReady, report.Status)
	assert.Equal(t, health.StatusUnhealthy, report.Checks.WorkflowEngine.Status)
	assert.Equal(t, "engine unreachable", report.Checks.WorkflowEngine.Error)
}

func TestCheckAll_IdentityProviderCriticalityByEnvironment(t *testing.T) {
	keys := &fakeKeys{failing: map[string]error{
		"https://auth.example.com": errors.New("jwks fetch failed"),
	}}

	t.Run("production", func(t *testing.T) {
		checker := newChecker(testConfig("production"),
			&fakeDB{}, &fakeCache{up: true}, &fakeWorkflow{}, keys)

		report := checker.CheckAll(context.Background())
		assert.Equal(t, health.NotReady, report.Status)
		assert.Equal(t, health.StatusUnhealthy, report.Checks.IdentityProviders["main"].Status)
	})

	t.Run("development", func(t *testing.T) {
		checker := newChecker(testConfig("development"),
			&fakeDB{}, &fakeCache{up: true}, &fakeWorkflow{}, keys)

		report := checker.CheckAll(context.Background())
		assert.Equal(t, health.Ready, report.Status, "provider failures are advisory outside production")
		provider := report.Checks.IdentityProviders["main"]
		assert.Equal(t, health.StatusUnhealthy, provider.Status)
		assert.Equal(t, "https://auth.example.com", provider.Issuer)
		assert.Equal(t, "jwks fetch failed", provider.Error)
	})
}

func TestCheckAll_NoIdentityProvidersOmitted(t *testing.T) {
	cfg := testConfig("production")
	cfg.Identity.Providers = nil
	checker := newChecker(cfg, &fakeDB{}, &fakeCache{up: true}, &fakeWorkflow{}, &fakeKeys{})

	report := checker.CheckAll(context.Background())

	assert.Equal(t, health.Ready, report.Status)
	assert.Nil(t, report.Checks.IdentityProviders)
}

func TestCheckCacheDetailed(t *testing.T) {
	cache := &fakeCache{up: true, info: map[string]string{"redis_version": "7.2.4"}}
	checker := newChecker(testConfig("development"), &fakeDB{}, cache, &fakeWorkflow{}, &fakeKeys{})

	result := checker.CheckCacheDetailed(context.Background())
	assert.Equal(t, health.StatusHealthy, result.Status)
	assert.Equal(t, "7.2.4", result.Info["redis_version"])
}

func TestCheckWorkflowDetailed(t *testing.T) {
	checker := newChecker(testConfig("development"), &fakeDB{}, &fakeCache{up: true}, &fakeWorkflow{}, &fakeKeys{})

	result := checker.CheckWorkflowDetailed(context.Background())
	assert.Equal(t, health.StatusHealthy, result.Status)
	assert.Equal(t, "gantry-tasks", result.TaskQueue)
}

type hangingDB struct{}

func (h *hangingDB) HealthCheck(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
func (h *hangingDB) Type() string { return "sqlite" }

func TestCheckAll_HungProbeIsBounded(t *testing.T) {
	checker := health.New(testConfig("development"),
		&hangingDB{}, &fakeCache{up: true}, &fakeWorkflow{}, &fakeKeys{},
		health.WithProbeTimeout(50*time.Millisecond),
		health.WithLogger(logging.NewNop()))

	done := make(chan health.Report, 1)
	go func() { done <- checker.CheckAll(context.Background()) }()

	select {
	case report := <-done:
		assert.Equal(t, health.NotReady, report.Status)
		assert.Equal(t, health.StatusUnhealthy, report.Checks.Database.Status)
	case <-time.After(2 * time.Second):
		require.Fail(t, "CheckAll did not return; a hung dependency stalled the readiness check")
	}
}
