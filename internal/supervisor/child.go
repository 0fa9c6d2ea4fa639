// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// ChildArg0 is argv[0] of the re-executed binary in the child branch.
const ChildArg0 = "virtsup-vm"

// Exit codes of the child that are not propagated from the emulator.
const (
	ExitCodeUsage                    = 2
	ExitCodeSignalHandlerInstallFail = 125
	ExitCodeNotExecutable            = 126
	ExitCodeNotFound                 = 127
	exitCodeSignalOffset             = 128
)

// Grace period for the emulator after the child has been asked to terminate.
const terminateWaitDelay = 10 * time.Second

// installHandler is a variable so tests can simulate installation failures.
var installHandler = InstallStopHandler

// IsChild returns true if the given argument vector is the one of a child
// spawned by [Supervisor.Launch].
func IsChild(args []string) bool {
	return len(args) > 0 && filepath.Base(args[0]) == ChildArg0
}

// RunChild is the child branch. The given argument vector is the emulator
// invocation including the executable. The emulator inherits standard I/O of
// the child.
//
// The stop handler is installed before the emulator is started. If this
// fails, the emulator is not started at all and
// [ExitCodeSignalHandlerInstallFail] is returned. Otherwise, the exit code of
// the emulator is returned. If the emulator was terminated by a signal, the
// exit code is 128 plus the signal number.
func RunChild(ctx context.Context, argv []string) int {
	if len(argv) == 0 {
		slog.Error("Missing emulator command")
		return ExitCodeUsage
	}

	handler, err := installHandler()
	if err != nil {
		slog.Error("Refusing to run unsupervised", slog.Any("error", err))
		return ExitCodeSignalHandlerInstallFail
	}

	ctx, cancel := signalContext(ctx)
	defer cancel()

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Start()
	if err != nil {
		slog.Error("Start emulator", slog.Any("error", err))
		return startErrorExitCode(err)
	}

	slog.Debug("Emulator started",
		slog.Int("pid", cmd.Process.Pid),
		slog.Time("handler_installed_at", handler.InstalledAt()))

	handlerCtx, stopHandler := context.WithCancel(context.Background())
	eg := errgroup.Group{}

	eg.Go(func() error {
		handler.Run(handlerCtx)
		return nil
	})

	eg.Go(func() error {
		defer stopHandler()
		return waitEmulator(ctx, cmd)
	})

	err = eg.Wait()

	return emulatorExitCode(cmd.ProcessState, err)
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(
		ctx,
		unix.SIGABRT,
		unix.SIGINT,
		unix.SIGTERM,
		unix.SIGQUIT,
		unix.SIGHUP,
	)
}

// waitEmulator waits for the emulator to exit. If the context is canceled
// before, the emulator is asked to terminate and killed after a grace period.
func waitEmulator(ctx context.Context, cmd *exec.Cmd) error {
	exited := make(chan error, 1)

	go func() {
		exited <- cmd.Wait()
	}()

	select {
	case err := <-exited:
		return err
	case <-ctx.Done():
	}

	slog.Debug("Terminating emulator", slog.Int("pid", cmd.Process.Pid))

	_ = cmd.Process.Signal(unix.SIGTERM)

	timer := time.NewTimer(terminateWaitDelay)
	defer timer.Stop()

	select {
	case err := <-exited:
		return err
	case <-timer.C:
		_ = cmd.Process.Kill()
		return <-exited
	}
}

func startErrorExitCode(err error) int {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return ExitCodeNotFound
	default:
		return ExitCodeNotExecutable
	}
}

func emulatorExitCode(state *os.ProcessState, err error) int {
	if state == nil {
		slog.Error("Emulator", slog.Any("error", err))
		return ExitCodeNotExecutable
	}

	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return exitCodeSignalOffset + int(status.Signal())
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		slog.Error("Wait for emulator", slog.Any("error", err))
	}

	return state.ExitCode()
}
