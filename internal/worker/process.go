package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionEnv carries the session id to the worker process
const SessionEnv = "CRATE_SESSION"

// WaitDelay bounds how long Run waits for the worker's pipes to close after
// it has been stopped
const WaitDelay = 5 * time.Second

// Process runs the external download worker and streams its stdout
type Process struct {
	command   string
	args      []string
	sessionID string
	logger    *slog.Logger
}

// NewProcess prepares a worker process; nothing starts until Run
func NewProcess(command string, args []string, logger *slog.Logger) *Process {
	if logger == nil {
		logger = slog.Default()
	}
	session := uuid.NewString()
	return &Process{
		command:   command,
		args:      args,
		sessionID: session,
		logger:    logger.With("session", session),
	}
}

// SessionID identifies this worker run in logs
func (p *Process) SessionID() string { return p.sessionID }

// Run starts the worker and calls handle for every message until the worker
// exits or ctx is canceled. handle runs on the reading goroutine; callers hop
// onto the UI goroutine themselves.
func (p *Process) Run(ctx context.Context, handle func(Message)) error {
	if p.command == "" {
		return errors.New("worker command not configured")
	}

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Env = append(os.Environ(), SessionEnv+"="+p.sessionID)
	cmd.WaitDelay = WaitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	p.logger.Info("worker started", "command", p.command, "pid", cmd.Process.Pid)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			p.logger.Warn("worker stderr", "line", scanner.Text())
		}
		// keep the pipe drained past a line the scanner gave up on
		_, _ = io.Copy(io.Discard, stderr)
	}()

	streamErr := Stream(ctx, stdout, p.logger, handle)
	if streamErr != nil && ctx.Err() == nil {
		// nothing reads stdout any more; stop the worker instead of letting it block
		p.logger.Error("worker stream failed, stopping worker", "error", streamErr)
		_ = cmd.Process.Kill()
	}
	wg.Wait()
	waitErr := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case streamErr != nil:
		return streamErr
	case waitErr != nil:
		return fmt.Errorf("worker exited: %w", waitErr)
	}
	p.logger.Info("worker exited")
	return nil
}
