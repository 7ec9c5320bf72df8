package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keel/internal/adapters/config"
	"go.trai.ch/keel/internal/adapters/statefile"
	"go.trai.ch/keel/internal/adapters/telemetry"
	"go.trai.ch/keel/internal/app"
	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/keel/internal/engine/scheduler"
)

type memoLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *memoLogger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *memoLogger) Warn(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *memoLogger) Error(error) {}

func (l *memoLogger) hasInfo(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.infos {
		if m == msg {
			return true
		}
	}
	return false
}

type countingExecutor struct {
	mu    sync.Mutex
	calls map[string]int
}

func newCountingExecutor() *countingExecutor {
	return &countingExecutor{calls: make(map[string]int)}
}

func (e *countingExecutor) Execute(_ context.Context, node *domain.WorkNode) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[node.TaskName.String()]++
	return "", nil
}

func (e *countingExecutor) count(task string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[task]
}

type fixture struct {
	app  *app.App
	exec *countingExecutor
	log  *memoLogger
	dir  string
}

func newFixture(t *testing.T, keelfile string) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ConfigFileName), []byte(keelfile), 0o644))

	log := &memoLogger{}
	exec := newCountingExecutor()
	sched := scheduler.NewScheduler(exec, telemetry.NewNoopTracer())
	store := statefile.NewStore(filepath.Join(dir, domain.KeelDirName, domain.StateDirName))

	return &fixture{
		app:  app.New(config.NewLoader(log), store, sched, nil, log, telemetry.NewNoopTracer()),
		exec: exec,
		log:  log,
		dir:  dir,
	}
}

const basicKeelfile = `
version: "1"
name: demo
tasks:
  compile:
    cmd: ["cc", "-c", "main.c"]
  package:
    cmd: ["tar", "cf", "out.tar"]
    dependsOn: ["compile"]
  unrelated:
    cmd: ["true"]
`

func TestApp_Run_ExecutesTargetClosure(t *testing.T) {
	f := newFixture(t, basicKeelfile)

	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"package"}, app.RunOptions{}))

	assert.Equal(t, 1, f.exec.count("compile"))
	assert.Equal(t, 1, f.exec.count("package"))
	assert.Equal(t, 0, f.exec.count("unrelated"), "tasks outside the target closure must not run")
}

func TestApp_Run_AllPseudoTarget(t *testing.T) {
	f := newFixture(t, basicKeelfile)

	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"all"}, app.RunOptions{}))

	assert.Equal(t, 1, f.exec.count("unrelated"))
}

func TestApp_Run_NoTargets(t *testing.T) {
	f := newFixture(t, basicKeelfile)

	err := f.app.Run(context.Background(), f.dir, nil, app.RunOptions{})
	assert.True(t, errors.Is(err, domain.ErrNoTargetsSpecified))
}

func TestApp_Run_UnknownTarget(t *testing.T) {
	f := newFixture(t, basicKeelfile)

	err := f.app.Run(context.Background(), f.dir, []string{"deploy"}, app.RunOptions{})
	assert.True(t, errors.Is(err, domain.ErrTaskNotFound))
}

func TestApp_Run_WritesAndReusesState(t *testing.T) {
	f := newFixture(t, basicKeelfile)
	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"package"}, app.RunOptions{}))
	assert.False(t, f.log.hasInfo("reusing configuration state"))

	// Break the config file: a restored second run must never parse it.
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, domain.ConfigFileName), []byte("version: [broken"), 0o644))

	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"package"}, app.RunOptions{}))
	assert.True(t, f.log.hasInfo("reusing configuration state"))
}

func TestApp_Run_TargetMismatchReconfigures(t *testing.T) {
	f := newFixture(t, basicKeelfile)
	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"compile"}, app.RunOptions{}))

	// Different targets invalidate the cached entry.
	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"package"}, app.RunOptions{}))
	assert.False(t, f.log.hasInfo("reusing configuration state"))
	assert.Equal(t, 1, f.exec.count("package"))
}

func TestApp_Run_NoStateCacheBypasses(t *testing.T) {
	f := newFixture(t, basicKeelfile)
	opts := app.RunOptions{NoStateCache: true}
	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"compile"}, opts))
	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"compile"}, opts))

	assert.False(t, f.log.hasInfo("reusing configuration state"))

	stateDir := filepath.Join(f.dir, domain.KeelDirName, domain.StateDirName)
	if _, err := os.Stat(stateDir); !os.IsNotExist(err) {
		t.Error("expected no state directory when the cache is bypassed")
	}
}

func TestApp_Run_CorruptStateFallsBack(t *testing.T) {
	f := newFixture(t, basicKeelfile)
	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"compile"}, app.RunOptions{}))

	// Truncate every state entry.
	stateDir := filepath.Join(f.dir, domain.KeelDirName, domain.StateDirName)
	entries, err := os.ReadDir(stateDir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, os.WriteFile(filepath.Join(stateDir, e.Name()), []byte("garbage"), 0o644))
	}

	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"compile"}, app.RunOptions{}))
	assert.False(t, f.log.hasInfo("reusing configuration state"))
	assert.NotEmpty(t, f.log.warns)
}

func TestApp_Run_UnsupportedFeaturesSkipPersist(t *testing.T) {
	f := newFixture(t, `
version: "1"
tasks:
  gen:
    cmd: ["generate"]
dynamicIncludes:
  - "modules/*"
`)

	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"gen"}, app.RunOptions{}))

	stateDir := filepath.Join(f.dir, domain.KeelDirName, domain.StateDirName)
	if _, err := os.Stat(stateDir); !os.IsNotExist(err) {
		t.Error("expected no state entry for a build with unsupported features")
	}
}

func TestApp_Clean(t *testing.T) {
	f := newFixture(t, basicKeelfile)
	require.NoError(t, f.app.Run(context.Background(), f.dir, []string{"compile"}, app.RunOptions{}))

	require.NoError(t, f.app.Clean(context.Background()))

	stateDir := filepath.Join(f.dir, domain.KeelDirName, domain.StateDirName)
	if _, err := os.Stat(stateDir); !os.IsNotExist(err) {
		t.Error("expected state directory to be removed")
	}
}
