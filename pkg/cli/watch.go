package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/stanzabuild/stanza/pkg/httputil"
	"github.com/stanzabuild/stanza/pkg/observability"
)

// watchDebounce is how long the loop waits after the last change before
// rebuilding, so a burst of editor writes triggers one pass.
const watchDebounce = 500 * time.Millisecond

type watchOptions struct {
	refreshSpec string
	metricsAddr string
}

// watchLoop runs pass once, then again whenever Haskell sources or plugin
// configuration change under the working directory. A failing pass is
// reported and the loop keeps watching.
func (a *app) watchLoop(ctx context.Context, cmd *cobra.Command, pass func(context.Context) error, opts watchOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, a.workDir); err != nil {
		return fmt.Errorf("watching %s: %w", a.workDir, err)
	}

	refresh := make(chan struct{}, 1)
	if opts.refreshSpec != "" {
		c := cron.New()
		if _, err := c.AddFunc(opts.refreshSpec, func() {
			defer observability.RecoverPanic(a.log, "plugin refresh tick")
			select {
			case refresh <- struct{}{}:
			default:
			}
		}); err != nil {
			return fmt.Errorf("invalid --plugin-refresh schedule %q: %w", opts.refreshSpec, err)
		}
		c.Start()
		defer func() {
			stopCtx := c.Stop()
			<-stopCtx.Done()
		}()
		a.log.WithField("schedule", opts.refreshSpec).Info("Plugin refresh scheduled")
	}

	if opts.metricsAddr != "" {
		shutdown := a.serveDiagnostics(opts.metricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown.Shutdown(shutdownCtx); err != nil {
				a.log.WithError(err).Warn("Diagnostics server shutdown failed")
			}
		}()
	}

	runPass := func(trigger string) {
		a.log.WithField("trigger", trigger).Info("Rebuilding")
		if err := pass(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
	runPass("start")
	a.log.WithField("dir", a.workDir).Info("Watching for changes")

	debounce := time.NewTimer(watchDebounce)
	stopTimer(debounce)
	defer debounce.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 && watchedFile(event.Name) {
				a.log.WithField("file", event.Name).Debug("Change detected")
				stopTimer(debounce)
				debounce.Reset(watchDebounce)
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() && !skipDir(filepath.Base(event.Name)) {
					if err := watcher.Add(event.Name); err != nil {
						a.log.WithError(err).WithField("dir", event.Name).Warn("Cannot watch new directory")
					}
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.log.WithError(err).Warn("Watcher error")
		case <-debounce.C:
			runPass("change")
		case <-refresh:
			runPass("schedule")
		case <-ctx.Done():
			a.log.Info("Stopping watch")
			return nil
		}
	}
}

// stopTimer stops a timer and drains any pending tick so Reset rearms it
// cleanly.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// watchTree recursively adds the directories under root to the watcher,
// skipping build output and VCS metadata.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && skipDir(info.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// skipDir filters directories whose churn never affects a plugin pass.
// .stanza is kept: project plugin configuration lives there.
func skipDir(name string) bool {
	switch name {
	case ".git", "dist", "dist-newstyle", ".stack-work":
		return true
	}
	return name != ".stanza" && len(name) > 1 && name[0] == '.'
}

// watchedFile reports whether a change to the named file should trigger a
// rebuild: Haskell sources, the package manifest, or plugin configuration.
func watchedFile(name string) bool {
	switch filepath.Ext(name) {
	case ".hs", ".lhs", ".cabal":
		return true
	}
	base := filepath.Base(name)
	return base == "package.yaml" || base == "plugins.yaml"
}

// serveDiagnostics exposes /metrics and the health probes for long watch
// sessions. Returns the manager that shuts the server down.
func (a *app) serveDiagnostics(addr string) *observability.ShutdownManager {
	router := mux.NewRouter()
	router.Use(httputil.Recovery(a.log), httputil.RequestLogging(a.log))
	router.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	checker := observability.NewHealthChecker(a.indexDB, a.regClient)
	router.HandleFunc("/health", checker.Readiness)
	router.HandleFunc("/health/live", checker.Liveness)
	router.HandleFunc("/health/ready", checker.Readiness)

	server := &http.Server{Addr: addr, Handler: router}
	go func() {
		defer observability.RecoverPanic(a.log, "diagnostics server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("Diagnostics server failed")
		}
	}()
	a.log.WithField("addr", addr).Info("Serving diagnostics")

	return observability.NewShutdownManager(a.log, server, 5*time.Second)
}
