package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"

	terrors "github.com/piyushgupta53/termbridge/internal/errors"
	"github.com/piyushgupta53/termbridge/internal/types"
)

const outputBufferSize = 4096

// PTYConfig holds configuration for spawning a PTY-backed shell process
type PTYConfig struct {
	Shell       string
	WorkingDir  string
	Env         map[string]string
	Dimensions  types.Dimensions
	GracePeriod time.Duration
}

// Proc is the contract the rest of the system has with a PTY-backed process.
// The production implementation is Process; tests substitute synthetic ones.
type Proc interface {
	Write(data []byte) (int, error)
	Resize(dims types.Dimensions) error
	Kill()
	Output() <-chan []byte
	Done() <-chan struct{}
	ExitCode() int
}

// Process owns one OS pseudo-terminal and its child shell process
type Process struct {
	ptmx  *os.File
	cmd   *exec.Cmd
	grace time.Duration

	output   chan []byte
	done     chan struct{}
	exitCode int

	killOnce sync.Once
}

// SpawnFunc creates a PTY-backed process. The registry holds one of these so
// tests can run against synthetic processes.
type SpawnFunc func(cfg *PTYConfig) (Proc, error)

// Spawn starts a shell inside a new PTY. It fails with a *errors.SpawnError
// when the working directory is invalid or process creation fails, keeping
// OS resource exhaustion distinguishable from other failures.
func Spawn(cfg *PTYConfig) (Proc, error) {
	if err := validateWorkingDir(cfg.WorkingDir); err != nil {
		return nil, err
	}

	shell := resolveShell(cfg.Shell)

	cmd := exec.Command(shell)
	cmd.Dir = cfg.WorkingDir
	cmd.Env = buildEnvironment(cfg.Env)

	logrus.WithFields(logrus.Fields{
		"shell":       shell,
		"working_dir": cfg.WorkingDir,
		"cols":        cfg.Dimensions.Cols,
		"rows":        cfg.Dimensions.Rows,
	}).Info("Spawning PTY shell process")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: cfg.Dimensions.Rows,
		Cols: cfg.Dimensions.Cols,
	})
	if err != nil {
		return nil, classifySpawnError(err)
	}

	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}

	p := &Process{
		ptmx:   ptmx,
		cmd:    cmd,
		grace:  grace,
		output: make(chan []byte, 32),
		done:   make(chan struct{}),
	}

	go p.readLoop()

	logrus.WithFields(logrus.Fields{
		"pty_name": ptmx.Name(),
		"pid":      cmd.Process.Pid,
	}).Info("PTY created successfully")

	return p, nil
}

// Write forwards raw bytes to the child process's input without interpretation
func (p *Process) Write(data []byte) (int, error) {
	return p.ptmx.Write(data)
}

// Resize propagates a terminal-size change to the child process. A resize on
// an already-exited process is logged, not fatal.
func (p *Process) Resize(dims types.Dimensions) error {
	err := pty.Setsize(p.ptmx, &pty.Winsize{
		Rows: dims.Rows,
		Cols: dims.Cols,
	})
	if err != nil {
		logrus.WithError(err).WithField("pid", p.cmd.Process.Pid).Warn("Failed to resize PTY")
	}
	return err
}

// Kill terminates the child process group: SIGTERM first, then SIGKILL once
// the grace period expires without an exit. Idempotent.
func (p *Process) Kill() {
	p.killOnce.Do(func() {
		pid := p.cmd.Process.Pid

		logrus.WithField("pid", pid).Info("Terminating PTY process group")

		// The child is the session leader, so -pid addresses its whole group
		if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
			logrus.WithError(err).WithField("pid", pid).Debug("SIGTERM failed, process likely already gone")
		}

		go func() {
			select {
			case <-p.done:
			case <-time.After(p.grace):
				logrus.WithField("pid", pid).Warn("Grace period expired, sending SIGKILL")
				if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
					logrus.WithError(err).WithField("pid", pid).Debug("SIGKILL failed")
				}
			}
		}()
	})
}

// Output returns the raw byte stream produced by the PTY. Chunks are
// delivered in the order the PTY produced them; the channel is closed when
// the stream ends.
func (p *Process) Output() <-chan []byte {
	return p.output
}

// Done is closed once the child process has exited and the exit code is set
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitCode returns the child's exit code. Only valid after Done is closed.
func (p *Process) ExitCode() int {
	return p.exitCode
}

// readLoop pumps PTY output and reaps the child on stream end
func (p *Process) readLoop() {
	buffer := make([]byte, outputBufferSize)

	for {
		n, err := p.ptmx.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			p.output <- chunk
		}
		if err != nil {
			// EIO is the normal read error on Linux once the child exits
			break
		}
	}

	close(p.output)

	code := 0
	if err := p.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	p.exitCode = code

	if err := p.ptmx.Close(); err != nil {
		logrus.WithError(err).Debug("Failed to close PTY master")
	}

	logrus.WithFields(logrus.Fields{
		"pid":       p.cmd.Process.Pid,
		"exit_code": code,
	}).Info("PTY shell process exited")

	close(p.done)
}

// validateWorkingDir checks the directory before any PTY is allocated
func validateWorkingDir(dir string) error {
	if dir == "" {
		return &terrors.SpawnError{
			Reason: terrors.SpawnReasonBadWorkdir,
			Cause:  fmt.Errorf("working directory is required"),
		}
	}

	stat, err := os.Stat(dir)
	if err != nil {
		return &terrors.SpawnError{
			Reason: terrors.SpawnReasonBadWorkdir,
			Cause:  fmt.Errorf("working directory %q: %w", dir, err),
		}
	}
	if !stat.IsDir() {
		return &terrors.SpawnError{
			Reason: terrors.SpawnReasonBadWorkdir,
			Cause:  fmt.Errorf("working directory %q is not a directory", dir),
		}
	}

	return nil
}

// classifySpawnError wraps a process creation failure, separating PTY/fd
// exhaustion so callers can apply backoff and operators get a usable hint
func classifySpawnError(err error) *terrors.SpawnError {
	if isExhaustion(err) {
		return &terrors.SpawnError{
			Reason: terrors.SpawnReasonExhausted,
			Hint:   "PTY or file descriptor limit reached; close sessions or raise the OS limit",
			Cause:  err,
		}
	}
	return &terrors.SpawnError{
		Reason: terrors.SpawnReasonOther,
		Cause:  err,
	}
}

func isExhaustion(err error) bool {
	for _, errno := range []syscall.Errno{syscall.EAGAIN, syscall.EMFILE, syscall.ENFILE} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return strings.Contains(err.Error(), "resource temporarily unavailable")
}

// resolveShell determines the shell to execute, following the user's
// environment before falling back to common shells
func resolveShell(shell string) string {
	if shell != "" {
		return shell
	}

	if envShell := os.Getenv("SHELL"); envShell != "" {
		return envShell
	}

	for _, candidate := range []string{"/bin/bash", "/bin/sh", "/bin/zsh"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "/bin/sh"
}

// buildEnvironment prepares the environment for the shell, ensuring TERM is
// set for proper terminal behavior
func buildEnvironment(customEnv map[string]string) []string {
	env := os.Environ()

	for key, value := range customEnv {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	for _, envVar := range env {
		if strings.HasPrefix(envVar, "TERM=") {
			return env
		}
	}

	return append(env, "TERM=xterm-256color")
}
