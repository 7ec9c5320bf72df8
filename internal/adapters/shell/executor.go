// Package shell provides the shell executor adapter.
package shell

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"go.trai.ch/keel/internal/core/domain"
	"go.trai.ch/keel/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor using os/exec.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new shell executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute runs the work node's command and returns its combined output.
// A node without a command is a pure aggregation node and succeeds with no output.
func (e *Executor) Execute(ctx context.Context, node *domain.WorkNode) (any, error) {
	if len(node.Command) == 0 {
		return "", nil
	}

	e.logger.Info("executing " + node.TaskName.String())

	name := node.Command[0]
	args := node.Command[1:]

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // user provided command
	cmd.Env = os.Environ()

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if trimmed := strings.TrimSpace(output.String()); trimmed != "" {
			e.logger.Warn(node.TaskName.String() + ": " + trimmed)
		}
		exitErr := zerr.With(zerr.Wrap(err, "command failed"), "task", node.TaskName.String())
		if ee, ok := err.(*exec.ExitError); ok {
			exitErr = zerr.With(exitErr, "exit_code", ee.ExitCode())
		}
		return nil, exitErr
	}

	return output.String(), nil
}
