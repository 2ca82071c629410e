// Package engine supervises the backend engine subprocess. The engine is
// optional: a missing binary degrades to a warning and the dev loop runs
// without it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/boifagusy/flashflow-sub000/internal/logging"
)

// stopGrace is how long the engine gets to exit after the polite signal
// before it is killed.
const stopGrace = 5 * time.Second

// Options describe how to launch the engine.
type Options struct {
	// Command is the engine binary plus arguments, split on whitespace.
	// The project root is appended as the final argument.
	Command string
	Root    string
	Host    string
	Port    int
}

// Handle supervises one running engine process.
type Handle struct {
	cmd      *exec.Cmd
	logger   logging.Logger
	started  time.Time
	done     chan struct{}
	waitErr  error
	stopOnce sync.Once
}

// Start launches the engine process with FLASHFLOW_DIRECT_PORT exported.
// Errors mean the engine is unavailable, not that the loop should stop.
func Start(ctx context.Context, opts Options, logger logging.Logger) (*Handle, error) {
	parts := strings.Fields(opts.Command)
	if len(parts) == 0 {
		return nil, errors.New("engine command is empty")
	}

	binary, err := exec.LookPath(parts[0])
	if err != nil {
		return nil, fmt.Errorf("engine binary %q not found: %w", parts[0], err)
	}

	args := make([]string, 0, len(parts))
	args = append(args, parts[1:]...)
	args = append(args, opts.Root)

	cmd := exec.Command(binary, args...)
	cmd.Dir = opts.Root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		"FLASHFLOW_DIRECT_PORT="+strconv.Itoa(opts.Port),
		"FLASHFLOW_HOST="+opts.Host,
	)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting engine: %w", err)
	}

	h := &Handle{
		cmd:     cmd,
		logger:  logger.WithComponent("engine"),
		started: time.Now(),
		done:    make(chan struct{}),
	}

	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	h.logger.Info(ctx, "engine started", "pid", cmd.Process.Pid, "port", opts.Port)
	return h, nil
}

// PID returns the engine's process id.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Uptime reports how long the engine has been running.
func (h *Handle) Uptime() time.Duration {
	return time.Since(h.started)
}

// Running reports whether the process is still alive.
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Err returns the process exit error once it has exited, nil otherwise.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.waitErr
	default:
		return nil
	}
}

// Stop asks the engine to exit and escalates to a kill after the grace
// period. It is safe to call more than once and blocks until the process
// is gone.
func (h *Handle) Stop(ctx context.Context) {
	h.stopOnce.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}

		h.logger.Info(ctx, "stopping engine", "pid", h.cmd.Process.Pid)

		// The polite signal is unsupported on some platforms; escalate
		// straight to the kill in that case.
		if err := h.cmd.Process.Signal(os.Interrupt); err != nil {
			_ = h.cmd.Process.Kill()
			<-h.done
			return
		}

		select {
		case <-h.done:
		case <-time.After(stopGrace):
			h.logger.Warn(ctx, nil, "engine ignored interrupt, killing", "pid", h.cmd.Process.Pid)
			_ = h.cmd.Process.Kill()
			<-h.done
		}
	})
	<-h.done
}
