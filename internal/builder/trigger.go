// Package builder runs the project build command and serialises overlapping
// build requests. A build is an external process; its failure is reported,
// logged and recorded, never fatal to the dev loop.
package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/boifagusy/flashflow-sub000/internal/logging"
)

// DefaultTimeout bounds a single build run when no timeout is configured.
const DefaultTimeout = 5 * time.Minute

// Result describes one completed build run.
type Result struct {
	Scope       string
	Environment string
	Success     bool
	Duration    time.Duration
	Log         string
	// Err carries the process-level failure on unsuccessful runs. It is
	// diagnostic detail, not a signal to stop the loop.
	Err error
}

// Trigger runs the configured build command for one project.
type Trigger struct {
	root    string
	command string
	timeout time.Duration
	logger  logging.Logger
}

// NewTrigger returns a trigger that builds the project at root. The command
// is split on whitespace; the project root is appended as the final
// argument.
func NewTrigger(root, command string, timeout time.Duration, logger logging.Logger) *Trigger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Trigger{
		root:    root,
		command: command,
		timeout: timeout,
		logger:  logger.WithComponent("builder"),
	}
}

// Run executes one build synchronously and reports its outcome. The scope
// and environment are exported to the build process as FLASHFLOW_TARGET
// and FLASHFLOW_ENV. The run is killed once the configured timeout
// elapses; a timed out or failing build comes back as an unsuccessful
// Result, never as a crash.
func (t *Trigger) Run(ctx context.Context, scope, env string) Result {
	start := time.Now()
	result := Result{Scope: scope, Environment: env}

	parts := strings.Fields(t.command)
	if len(parts) == 0 {
		result.Err = errors.New("build command is empty")
		result.Duration = time.Since(start)
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := make([]string, 0, len(parts))
	args = append(args, parts[1:]...)
	args = append(args, t.root)

	cmd := exec.CommandContext(runCtx, parts[0], args...)
	cmd.Dir = t.root
	// Orphaned children of a killed build keep the output pipe open;
	// WaitDelay stops them from wedging the loop.
	cmd.WaitDelay = 5 * time.Second
	cmd.Env = append(os.Environ(),
		"FLASHFLOW_TARGET="+scope,
		"FLASHFLOW_ENV="+env,
	)

	t.logger.Info(ctx, "build started", "scope", scope, "environment", env, "command", parts[0])

	output, err := cmd.CombinedOutput()
	result.Duration = time.Since(start)
	result.Log = string(output)

	if err != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			result.Err = fmt.Errorf("build timed out after %s: %w", t.timeout, err)
		case runCtx.Err() != nil:
			result.Err = fmt.Errorf("build interrupted: %w", err)
		default:
			result.Err = err
		}
		t.logger.Warn(ctx, result.Err, "build failed",
			"scope", scope,
			"environment", env,
			"duration_ms", result.Duration.Milliseconds(),
		)
		return result
	}

	result.Success = true
	t.logger.Info(ctx, "build completed",
		"scope", scope,
		"environment", env,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result
}
