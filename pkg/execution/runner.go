/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: runner.go
Description: Command runner implementation for the Akaylee Validator. Executes the
external test command under a hard wall-clock deadline, captures stdout, stderr,
exit code, and duration, and forcibly terminates the whole process group when the
deadline fires.
*/

package execution

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-validator/pkg/interfaces"
)

// CommandRunner implements interfaces.Runner by shelling out through sh -c.
// The command runs in its own process group so a timeout kill reaches every
// descendant, not just the shell.
type CommandRunner struct {
	logger *logrus.Logger
}

// NewCommandRunner creates a new command runner instance.
func NewCommandRunner(logger *logrus.Logger) *CommandRunner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CommandRunner{logger: logger}
}

// Run executes command inside workdir and blocks until the process exits,
// the timeout elapses, or ctx is cancelled. On deadline expiry the process
// group is killed and the result carries TimedOut=true; the caller decides
// what that means for the attempt.
func (r *CommandRunner) Run(ctx context.Context, command string, workdir string, timeout time.Duration) (*interfaces.RunResult, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = workdir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := &interfaces.RunResult{StartedAt: time.Now()}

	r.logger.WithFields(logrus.Fields{
		"command": command,
		"workdir": workdir,
		"timeout": timeout,
	}).Debug("Running test command")

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command %q: %w", command, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case waitErr := <-done:
		result.Duration = time.Since(result.StartedAt)
		result.ExitCode = cmd.ProcessState.ExitCode()
		if waitErr != nil {
			if _, ok := waitErr.(*exec.ExitError); !ok {
				return nil, fmt.Errorf("command %q did not complete: %w", command, waitErr)
			}
		}

	case <-timer:
		r.killGroup(cmd)
		<-done // reap before returning so the group is fully gone
		result.Duration = timeout
		result.ExitCode = -1
		result.TimedOut = true

	case <-ctx.Done():
		r.killGroup(cmd)
		<-done
		return nil, ctx.Err()
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	r.logger.WithFields(logrus.Fields{
		"exit_code": result.ExitCode,
		"duration":  result.Duration,
		"timed_out": result.TimedOut,
	}).Debug("Test command finished")

	return result, nil
}

// killGroup kills the entire process group rooted at cmd.
func (r *CommandRunner) killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		cmd.Process.Kill()
		return
	}
	syscall.Kill(-pgid, syscall.SIGKILL)
}
