// Package app implements the application layer for keel.
package app

import (
	"context"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"go.trai.ch/keel/internal/adapters/watcher"
	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/keel/internal/core/ports"
	"go.trai.ch/keel/internal/engine/scheduler"
	"go.trai.ch/keel/internal/state"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// debounceWindow coalesces file system event bursts in watch mode.
const debounceWindow = 500 * time.Millisecond

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	store        ports.StateStore
	scheduler    *scheduler.Scheduler
	watch        ports.Watcher
	logger       ports.Logger
	tracer       ports.Tracer
	plugin       ports.PluginAdapter
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	store ports.StateStore,
	sched *scheduler.Scheduler,
	watch ports.Watcher,
	log ports.Logger,
	tracer ports.Tracer,
) *App {
	return &App{
		configLoader: loader,
		store:        store,
		scheduler:    sched,
		watch:        watch,
		logger:       log,
		tracer:       tracer,
		plugin:       state.NoopPlugin{},
	}
}

// WithPlugin replaces the plugin adapter snapshotted alongside the build state.
func (a *App) WithPlugin(plugin ports.PluginAdapter) *App {
	a.plugin = plugin
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	NoStateCache bool
	Watch        bool
	Parallelism  int
}

// Run executes the requested targets from the build rooted at dir. When a
// usable state entry exists the configuration phase is skipped entirely and
// the build is reconstructed from the entry; otherwise the build is configured
// from its keel.yaml files and a fresh entry is written.
func (a *App) Run(ctx context.Context, dir string, targetNames []string, opts RunOptions) error {
	if len(targetNames) == 0 {
		return domain.ErrNoTargetsSpecified
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve build directory")
	}

	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}

	if opts.Watch {
		return a.runWatch(ctx, abs, targetNames, opts, parallelism)
	}
	return a.runOnce(ctx, abs, targetNames, opts, parallelism)
}

func (a *App) runOnce(ctx context.Context, dir string, targets []string, opts RunOptions, parallelism int) error {
	build, err := a.obtainBuild(ctx, dir, targets, opts)
	if err != nil {
		return err
	}
	if err := a.scheduler.Run(ctx, build, parallelism); err != nil {
		return zerr.Wrap(err, "build execution failed")
	}
	return nil
}

// obtainBuild restores the build from the state store when possible and falls
// back to a full configuration pass. A corrupt or stale entry is never fatal.
func (a *App) obtainBuild(ctx context.Context, dir string, targets []string, opts RunOptions) (*domain.Build, error) {
	if !opts.NoStateCache && a.store.HasEntry(dir) {
		build, err := a.restore(ctx, dir, targets)
		switch {
		case err != nil:
			a.logger.Warn("cached state unusable, configuring from scratch: " + err.Error())
		case build != nil:
			a.logger.Info("reusing configuration state")
			return build, nil
		}
	}
	return a.configure(ctx, dir, targets, opts)
}

// restore reads the cached build state. It returns a nil build without error
// when the entry was written for a different set of targets.
func (a *App) restore(ctx context.Context, dir string, targets []string) (*domain.Build, error) {
	_, span := a.tracer.Start(ctx, "state.read")
	defer span.End()

	reader := state.NewReader(a.scheduler, a.plugin, a.logger)
	build, err := reader.ReadRootBuild(a.store.EntryFor(dir), dir)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !slices.Equal(build.StartParameterTaskNames(), targets) {
		return nil, nil
	}
	return build, nil
}

func (a *App) configure(ctx context.Context, dir string, targets []string, opts RunOptions) (*domain.Build, error) {
	build, err := a.configLoader.Load(dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	build.SetStartParameterTaskNames(targets)

	nodes, err := selectWork(build, targets)
	if err != nil {
		return nil, err
	}
	build.Nodes = nodes

	if !opts.NoStateCache {
		a.persist(ctx, build)
	}

	a.scheduler.PrepareForTaskExecution(build)
	return build, nil
}

// persist writes the configured build to the state store. Failures degrade to
// an uncached run rather than failing the build.
func (a *App) persist(ctx context.Context, build *domain.Build) {
	if build.HasUnsupportedFeatures {
		a.logger.Warn("state caching disabled for this build")
		return
	}

	_, span := a.tracer.Start(ctx, "state.write")
	defer span.End()

	writer := state.NewWriter(a.scheduler, a.plugin)
	if err := writer.WriteRootBuild(build, a.store.EntryFor(build.RootDir)); err != nil {
		span.RecordError(err)
		a.logger.Warn("failed to write configuration state: " + err.Error())
	}
}

// selectWork resolves the requested targets to their dependency closure,
// preserving the configured node order. The pseudo target "all" selects every
// configured task.
func selectWork(build *domain.Build, targets []string) ([]*domain.WorkNode, error) {
	byName := make(map[string]*domain.WorkNode, len(build.Nodes))
	for _, node := range build.Nodes {
		byName[node.TaskName.String()] = node
	}

	needed := make(map[*domain.WorkNode]bool)
	var mark func(n *domain.WorkNode)
	mark = func(n *domain.WorkNode) {
		if needed[n] {
			return
		}
		needed[n] = true
		for _, dep := range n.Dependencies {
			mark(dep)
		}
	}

	for _, target := range targets {
		if target == "all" {
			for _, node := range build.Nodes {
				mark(node)
			}
			continue
		}
		node, ok := byName[target]
		if !ok {
			return nil, zerr.With(domain.ErrTaskNotFound, "task", target)
		}
		mark(node)
	}

	selected := make([]*domain.WorkNode, 0, len(needed))
	for _, node := range build.Nodes {
		if needed[node] {
			selected = append(selected, node)
		}
	}
	return selected, nil
}

// runWatch runs the targets once, then re-runs them whenever watched files
// change. A change to any keel.yaml discards the state store so the next run
// reconfigures.
func (a *App) runWatch(ctx context.Context, dir string, targets []string, opts RunOptions, parallelism int) error {
	if err := a.watch.Start(ctx, dir); err != nil {
		return zerr.Wrap(err, "failed to start watcher")
	}
	defer func() { _ = a.watch.Stop() }()

	runs := make(chan []string, 1)
	debounce := watcher.NewDebouncer(debounceWindow, func(paths []string) {
		// Drop the batch if a re-run is already queued; the next event
		// batch will pick the changes up.
		select {
		case runs <- paths:
		default:
		}
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for event := range a.watch.Events() {
			debounce.Add(event.Path)
		}
		debounce.Flush()
		close(runs)
		return nil
	})

	g.Go(func() error {
		a.runAndReport(ctx, dir, targets, opts, parallelism)
		for paths := range runs {
			if ctx.Err() != nil {
				break
			}
			if containsConfigChange(paths) {
				if err := a.store.Discard(); err != nil {
					a.logger.Warn("failed to discard configuration state: " + err.Error())
				}
			}
			a.scheduler.Reset()
			a.runAndReport(ctx, dir, targets, opts, parallelism)
		}
		return ctx.Err()
	})

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		// Cancellation ends watch mode normally.
		return nil
	}
	return err
}

// runAndReport executes one watch-mode iteration. Failures are reported and
// swallowed so the watch loop keeps running.
func (a *App) runAndReport(ctx context.Context, dir string, targets []string, opts RunOptions, parallelism int) {
	if err := a.runOnce(ctx, dir, targets, opts, parallelism); err != nil {
		a.logger.Error(err)
		return
	}
	a.logger.Info("run complete, watching for changes")
}

func containsConfigChange(paths []string) bool {
	return slices.ContainsFunc(paths, func(p string) bool {
		return filepath.Base(p) == domain.ConfigFileName
	})
}

// Clean discards the configuration state store.
func (a *App) Clean(_ context.Context) error {
	a.logger.Info("discarding configuration state")
	if err := a.store.Discard(); err != nil {
		return zerr.Wrap(err, "failed to discard state store")
	}
	return nil
}
