package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/stanzabuild/stanza/pkg/injector"
	"github.com/stanzabuild/stanza/pkg/invocation"
	"github.com/stanzabuild/stanza/pkg/launch"
	"github.com/stanzabuild/stanza/pkg/manifest"
	"github.com/stanzabuild/stanza/pkg/observability"
	"github.com/stanzabuild/stanza/pkg/plugins"
	"github.com/stanzabuild/stanza/pkg/registry"
	"github.com/stanzabuild/stanza/pkg/registry/index"
	"github.com/stanzabuild/stanza/pkg/resolve"
	"github.com/stanzabuild/stanza/pkg/vcs"
)

// app wires the full pipeline for one tool invocation: settings, logging,
// metrics, the registry and VCS clients, the injection engine, and the
// process launcher.
type app struct {
	settings *Settings
	workDir  string

	log      *logrus.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics

	regClient *registry.Client
	vcsClient *vcs.Client
	indexDB   *sql.DB

	loader   *plugins.Loader
	engine   *injector.Engine
	launcher *launch.Launcher

	otelProviders *observability.OTelProviders
}

// newApp assembles the pipeline from the merged settings. workDir is where
// project configuration and the manifest are discovered.
func newApp(ctx context.Context, settings *Settings, workDir string) (*app, error) {
	log := observability.NewLogger(observability.LoggerConfig{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
	})

	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promRegistry)

	a := &app{
		settings: settings,
		workDir:  workDir,
		log:      log,
		registry: promRegistry,
		metrics:  metrics,
	}

	if settings.OTelEnabled {
		providers, err := observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:     true,
			Endpoint:    settings.OTelEndpoint,
			ServiceName: "stanza",
			Insecure:    settings.OTelInsecure,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("initializing telemetry: %w", err)
		}
		a.otelProviders = providers
	}

	a.regClient = registry.NewClient(&registry.Config{
		BaseURL: settings.RegistryURL,
		Token:   settings.RegistryToken,
		Timeout: settings.HTTPTimeout,
		Log:     log,
	})
	a.vcsClient = vcs.NewClient(&vcs.Config{
		APIBaseURL: settings.GitHubAPIURL,
		Token:      settings.GitHubToken,
		Timeout:    settings.HTTPTimeout,
		Log:        log,
	})

	packageIndex, err := a.openIndex()
	if err != nil {
		return nil, err
	}

	a.loader = plugins.NewLoader(settings.UserConfigFile(), workDir, log)

	resolver := resolve.New(packageIndex, a.vcsClient, &resolve.Config{
		MaxWorkers: settings.MaxWorkers,
		Log:        log,
	})

	var otelMetrics *observability.OTelMetrics
	if a.otelProviders != nil {
		otelMetrics, err = observability.NewOTelMetrics()
		if err != nil {
			return nil, fmt.Errorf("initializing telemetry instruments: %w", err)
		}
	}

	a.engine, err = injector.New(injector.Config{
		Loader:      a.loader,
		Resolver:    resolver,
		Metrics:     metrics,
		OTelMetrics: otelMetrics,
		Log:         log,
	})
	if err != nil {
		return nil, err
	}

	a.launcher = launch.NewLauncher(log)
	return a, nil
}

// openIndex wires the sqlite version index in front of the registry client.
// Index trouble is never fatal: the tool falls back to direct registry
// lookups and says so.
func (a *app) openIndex() (resolve.PackageIndex, error) {
	if !a.settings.IndexEnabled {
		return a.regClient, nil
	}

	if err := os.MkdirAll(a.settings.Home, 0o755); err != nil {
		a.log.WithError(err).Warn("Cannot create stanza home, version index disabled")
		return a.regClient, nil
	}

	db, err := sql.Open("sqlite3", a.settings.IndexFile())
	if err != nil {
		a.log.WithError(err).Warn("Cannot open version index, falling back to registry")
		return a.regClient, nil
	}

	store, err := index.New(db, a.settings.IndexTTL, a.log)
	if err != nil {
		db.Close()
		a.log.WithError(err).Warn("Cannot initialize version index, falling back to registry")
		return a.regClient, nil
	}

	cached, err := index.NewCached(store, a.regClient, a.metrics, a.log)
	if err != nil {
		db.Close()
		return nil, err
	}

	a.indexDB = db
	return cached, nil
}

// Close releases the index handle and flushes telemetry.
func (a *app) Close() {
	if a.indexDB != nil {
		a.indexDB.Close()
	}
	if a.otelProviders != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.ShutdownOTel(ctx, a.otelProviders, a.log); err != nil {
			a.log.WithError(err).Warn("Telemetry shutdown failed")
		}
	}
}

// prepare classifies the invocation and, when eligible, runs the injection
// pipeline. requireManifest distinguishes commands that operate on a package
// from ones that may run anywhere.
func (a *app) prepare(ctx context.Context, kind invocation.CommandKind, asDependency, requireManifest bool) (*injector.Plan, error) {
	role := invocation.RoleTopLevel
	if asDependency {
		role = invocation.RoleDependency
	}
	inv := invocation.NewContext(kind, role, a.workDir)

	ctx = observability.WithInvocationID(ctx, inv.ID)
	ctx = observability.WithCommand(ctx, string(kind))

	m, err := manifest.LoadFromDir(a.workDir)
	if err != nil {
		if requireManifest {
			return nil, fmt.Errorf("no package manifest: %w", err)
		}
		m = nil
	}

	return a.engine.Prepare(ctx, inv, m)
}

// launchToolchain runs the configured toolchain command with the plan's
// environment applied.
func (a *app) launchToolchain(ctx context.Context, plan *injector.Plan, args []string) error {
	return a.launchProgram(ctx, plan, a.settings.Toolchain, args)
}

func (a *app) launchProgram(ctx context.Context, plan *injector.Plan, program string, args []string) error {
	result, err := a.launcher.Run(ctx, &launch.Request{
		Program: program,
		Args:    args,
		Dir:     a.workDir,
		Plugins: plan.Encoding,
	})
	if err != nil {
		if result != nil && result.ExitCode > 0 {
			return &exitError{code: result.ExitCode, err: err}
		}
		return err
	}
	return nil
}
