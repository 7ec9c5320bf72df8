package logger_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keel/internal/adapters/logger"
)

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lg := logger.NewWithOutput(&buf)

	lg.Info("configuring build")
	lg.Warn("state entry stale")
	lg.Error(os.ErrPermission)

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "configuring build")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "state entry stale")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "permission denied")
}

func TestNewConstructsUsableLogger(t *testing.T) {
	t.Parallel()

	lg := logger.New()
	require.NotNil(t, lg)
	lg.Info("ready")
}
