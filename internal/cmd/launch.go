// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/aibor/virtsup/internal/supervisor"
)

func newLaunchCommand(st *state) *cobra.Command {
	var (
		req  supervisor.LaunchRequest
		wait bool
	)

	cmd := &cobra.Command{
		Use:   "launch --disk PATH --iso PATH",
		Short: "Launch a single virtual machine",
		Long: `Launch a single virtual machine and print the PID of its supervising child.

Without --wait, the virtual machine keeps running after the command returned.
With --wait, the command waits for the virtual machine to exit and exits with
its exit code. Interrupting the command shuts the virtual machine down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.launch(cmd.Context(), req, wait)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.DiskPath, "disk", "", "disk image attached as first hard disk")
	flags.StringVar(&req.ISOPath, "iso", "", "ISO image attached as CD-ROM")
	flags.BoolVar(&wait, "wait", false, "wait for the virtual machine to exit")

	_ = cmd.MarkFlagRequired("disk")
	_ = cmd.MarkFlagRequired("iso")

	return cmd
}

func (st *state) newSupervisor() (*supervisor.Supervisor, error) {
	spec, err := st.config.CommandSpec()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	sup := supervisor.New(spec)
	sup.Env = st.childEnv()
	sup.Stdin = st.io.Stdin
	sup.Stdout = st.io.Stdout
	sup.Stderr = st.io.Stderr

	return sup, nil
}

func (st *state) launch(ctx context.Context, req supervisor.LaunchRequest, wait bool) error {
	sup, err := st.newSupervisor()
	if err != nil {
		return err
	}

	handle, err := sup.Launch(ctx, req)
	if err != nil {
		return err //nolint:wrapcheck
	}

	fmt.Fprintln(st.io.Stdout, handle.PID())

	if !wait {
		return nil
	}

	return waitChild(ctx, handle, st.gracePeriod())
}

// waitChild waits for the child to exit. If the context is done before, the
// child is terminated and killed after the grace period.
func waitChild(ctx context.Context, handle *supervisor.ChildHandle, grace time.Duration) error {
	waitErr := make(chan error, 1)

	go func() {
		waitErr <- handle.Wait()
	}()

	var err error

	select {
	case err = <-waitErr:
	case <-ctx.Done():
		slog.Warn("Terminating virtual machine", slog.Int("pid", handle.PID()))

		_ = handle.Terminate()

		timer := time.NewTimer(grace)
		defer timer.Stop()

		select {
		case err = <-waitErr:
		case <-timer.C:
			slog.Warn("Killing virtual machine", slog.Int("pid", handle.PID()))

			_ = handle.Kill()
			err = <-waitErr
		}
	}

	var exitErr *supervisor.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = 1
		}

		return &ExitCodeError{Code: code}
	}

	return err
}
