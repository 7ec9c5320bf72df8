package watcher_test

import (
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keel/internal/adapters/watcher"
)

func TestDebouncer_Add_SinglePath(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var callCount int
		var receivedPaths []string

		d := watcher.NewDebouncer(100*time.Millisecond, func(paths []string) {
			callCount++
			receivedPaths = paths
		})

		d.Add("/project/src/main.go")

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, 1, callCount)
		require.Len(t, receivedPaths, 1)
		assert.Equal(t, "/project/src/main.go", receivedPaths[0])
	})
}

func TestDebouncer_Add_CoalescesBurst(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var callCount int
		var receivedPaths []string

		d := watcher.NewDebouncer(100*time.Millisecond, func(paths []string) {
			callCount++
			receivedPaths = paths
		})

		d.Add("/project/keel.yaml")
		d.Add("/project/src/a.go")
		d.Add("/project/src/b.go")

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, 1, callCount)
		require.Len(t, receivedPaths, 3)
		assert.Contains(t, receivedPaths, "/project/keel.yaml")
		assert.Contains(t, receivedPaths, "/project/src/a.go")
		assert.Contains(t, receivedPaths, "/project/src/b.go")
	})
}

func TestDebouncer_Add_DeduplicatesPaths(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var callCount int
		var receivedPaths []string

		d := watcher.NewDebouncer(100*time.Millisecond, func(paths []string) {
			callCount++
			receivedPaths = paths
		})

		d.Add("/project/src/main.go")
		d.Add("/project/src/main.go")

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, 1, callCount)
		require.Len(t, receivedPaths, 1)
	})
}

func TestDebouncer_Add_RestartsWindow(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var callCount int

		d := watcher.NewDebouncer(100*time.Millisecond, func([]string) {
			callCount++
		})

		d.Add("/project/src/a.go")
		time.Sleep(60 * time.Millisecond)
		// Still inside the window; this restarts it.
		d.Add("/project/src/b.go")
		time.Sleep(60 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, 0, callCount, "window must restart on every add")

		time.Sleep(60 * time.Millisecond)
		synctest.Wait()
		require.Equal(t, 1, callCount)
	})
}

func TestDebouncer_Flush(t *testing.T) {
	var received []string
	d := watcher.NewDebouncer(time.Hour, func(paths []string) {
		received = paths
	})

	d.Add("/project/src/main.go")
	d.Flush()

	require.Len(t, received, 1)
	assert.Equal(t, "/project/src/main.go", received[0])
}

func TestDebouncer_Flush_Empty(t *testing.T) {
	called := false
	d := watcher.NewDebouncer(time.Hour, func([]string) {
		called = true
	})

	d.Flush()
	assert.False(t, called, "flush with nothing pending must not fire")
}
