// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"sync"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// ChildHandle references a launched child process.
//
// The reference is weak. It is valid until the process has exited. The handle
// does not own any resources of the child. Reaping the child is optional, but
// only a reaped child is guaranteed to never be signaled again by the handle.
type ChildHandle struct {
	cmd     *exec.Cmd
	process *os.Process

	waitOnce  sync.Once
	done      chan struct{}
	exitState *os.ProcessState
	exitErr   error
}

func newChildHandle(cmd *exec.Cmd) *ChildHandle {
	return &ChildHandle{
		cmd:     cmd,
		process: cmd.Process,
		done:    make(chan struct{}),
	}
}

// PID returns the process identifier of the child. It is never zero.
func (h *ChildHandle) PID() int {
	return h.process.Pid
}

// Signal sends the given signal to the child process only.
func (h *ChildHandle) Signal(sig syscall.Signal) error {
	if h.reaped() {
		return os.ErrProcessDone
	}

	err := h.process.Signal(sig)
	if err != nil {
		return fmt.Errorf("signal %d: %w", sig, err)
	}

	return nil
}

// Suspend sends the stop request to the process group of the child. The
// child's stop handler suspends the whole group.
func (h *ChildHandle) Suspend() error {
	return h.signalGroup(unix.SIGTSTP)
}

// Resume continues the suspended process group of the child.
func (h *ChildHandle) Resume() error {
	return h.signalGroup(unix.SIGCONT)
}

// Terminate asks the process group of the child to terminate. The group is
// continued afterwards, as a suspended group would not act on SIGTERM until
// resumed.
func (h *ChildHandle) Terminate() error {
	err := h.signalGroup(unix.SIGTERM)
	if err != nil {
		return err
	}

	err = h.signalGroup(unix.SIGCONT)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}

// Kill kills the process group of the child.
func (h *ChildHandle) Kill() error {
	return h.signalGroup(unix.SIGKILL)
}

func (h *ChildHandle) signalGroup(sig unix.Signal) error {
	if h.reaped() {
		return os.ErrProcessDone
	}

	err := unix.Kill(-h.process.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	} else if err != nil {
		return fmt.Errorf("signal group %d: %w", sig, err)
	}

	return nil
}

// Wait waits for the child to exit and reaps it. It may be called multiple
// times and from multiple goroutines. All calls return the same result. A
// child that did not exit successfully results in an [*ExitError].
func (h *ChildHandle) Wait() error {
	h.waitOnce.Do(func() {
		err := h.cmd.Wait()
		h.exitState = h.cmd.ProcessState

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = &ExitError{ProcessState: exitErr.ProcessState}
		}

		h.exitErr = err

		close(h.done)
	})

	<-h.done

	return h.exitErr
}

// Done returns a channel that is closed once the child has been reaped by
// [ChildHandle.Wait].
func (h *ChildHandle) Done() <-chan struct{} {
	return h.done
}

// ExitCode returns the exit code of the reaped child. It is -1 if the child
// has not been reaped yet or was terminated by a signal.
func (h *ChildHandle) ExitCode() int {
	if !h.reaped() || h.exitState == nil {
		return -1
	}

	return h.exitState.ExitCode()
}

// State returns the current lifecycle state of the child as reported by the
// OS.
//
// Only the child itself is observed. Its stop handler and the group signals
// sent by the handle act on child and emulator alike. A SIGSTOP sent to the
// child's PID alone is reported as [StateStopped] although the emulator keeps
// running.
func (h *ChildHandle) State() State {
	if h.reaped() {
		return StateExited
	}

	proc, err := process.NewProcess(int32(h.process.Pid)) //nolint:gosec
	if err != nil {
		return StateExited
	}

	status, err := proc.Status()
	if err != nil || len(status) == 0 {
		return StateExited
	}

	switch {
	case slices.Contains(status, process.Stop):
		return StateStopped
	case slices.Contains(status, process.Zombie):
		return StateExited
	default:
		return StateRunning
	}
}

// Cmdline returns the argument vector of the child as reported by the OS.
func (h *ChildHandle) Cmdline() ([]string, error) {
	if h.reaped() {
		return nil, os.ErrProcessDone
	}

	proc, err := process.NewProcess(int32(h.process.Pid)) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("lookup process: %w", err)
	}

	cmdline, err := proc.CmdlineSlice()
	if err != nil {
		return nil, fmt.Errorf("read cmdline: %w", err)
	}

	return cmdline, nil
}

func (h *ChildHandle) reaped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ExitError is returned by [ChildHandle.Wait] if the child did not exit
// successfully.
type ExitError struct {
	*os.ProcessState
}

func (e *ExitError) Error() string {
	return "child " + e.ProcessState.String()
}
