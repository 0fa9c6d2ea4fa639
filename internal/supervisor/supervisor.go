// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package supervisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"github.com/aibor/virtsup/internal/qemu"
)

// CommandBuilder assembles the emulator command for a launch.
type CommandBuilder func(spec qemu.CommandSpec) (*qemu.Command, error)

// Supervisor launches virtual machines.
type Supervisor struct {
	// Emulator is the template for the emulator command. Disk and ISO are
	// set from the [LaunchRequest] on each launch.
	Emulator qemu.CommandSpec

	// Self is the executable that is re-executed as child. If empty, the
	// executable of the running process is used.
	Self string

	// Env is appended to the environment of the child.
	Env []string

	// Standard I/O of child and emulator. Nil means the null device.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// BuildCommand assembles the emulator command. If nil,
	// [qemu.NewCommand] is used.
	BuildCommand CommandBuilder
}

// New creates a new [Supervisor] for the given emulator command template.
func New(emulator qemu.CommandSpec) *Supervisor {
	return &Supervisor{
		Emulator: emulator,
	}
}

// Launch spawns a child process that runs the emulator for the given
// request. It does not block on the emulator. On success, the returned handle
// references the running child. The caller is responsible for reaping the
// child with [ChildHandle.Wait] if it wants to avoid zombies.
//
// All errors are of type [*LaunchError]. No process is left behind on error.
func (s *Supervisor) Launch(ctx context.Context, req LaunchRequest) (*ChildHandle, error) {
	err := ctx.Err()
	if err != nil {
		return nil, &LaunchError{Kind: ErrSpawnFailed, Cause: err}
	}

	err = req.Validate()
	if err != nil {
		return nil, err
	}

	cmd, err := s.command(req)
	if err != nil {
		return nil, &LaunchError{Kind: ErrAllocationFailed, Cause: err}
	}

	self, err := s.self()
	if err != nil {
		return nil, &LaunchError{Kind: ErrSpawnFailed, Cause: err}
	}

	child := exec.Command(self, cmd.Argv()...)
	child.Args[0] = ChildArg0
	child.Env = append(os.Environ(), s.Env...)
	child.Stdin = s.Stdin
	child.Stdout = s.Stdout
	child.Stderr = s.Stderr
	child.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	err = child.Start()
	if err != nil {
		return nil, &LaunchError{Kind: ErrSpawnFailed, Cause: err}
	}

	handle := newChildHandle(child)

	slog.Debug("Child launched",
		slog.Int("pid", handle.PID()),
		slog.String("command", cmd.String()))

	return handle, nil
}

func (s *Supervisor) command(req LaunchRequest) (*qemu.Command, error) {
	spec := s.Emulator
	spec.Disk = req.DiskPath
	spec.ISO = req.ISOPath
	spec.ExtraArgs = append([]qemu.Argument(nil), s.Emulator.ExtraArgs...)

	build := s.BuildCommand
	if build == nil {
		build = qemu.NewCommand
	}

	cmd, err := build(spec)
	if err != nil {
		return nil, fmt.Errorf("emulator command: %w", err)
	}

	return cmd, nil
}

func (s *Supervisor) self() (string, error) {
	if s.Self != "" {
		return s.Self, nil
	}

	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("get own path: %w", err)
	}

	return self, nil
}

// WithQMPSocket returns a copy of the supervisor whose emulator serves QMP on
// the given unix socket path.
func (s *Supervisor) WithQMPSocket(path string) *Supervisor {
	clone := *s
	clone.Emulator.QMPSocket = path

	return &clone
}
