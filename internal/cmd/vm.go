// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aibor/virtsup/internal/api"
	"github.com/aibor/virtsup/internal/registry"
	"github.com/aibor/virtsup/internal/supervisor"
	"github.com/aibor/virtsup/internal/sys"
)

func newVMCommand(st *state) *cobra.Command {
	var format outputFormat

	cmd := &cobra.Command{
		Use:   "vm",
		Short: "Control virtual machines of a server",
	}

	addServerFlag(cmd)
	addOutputFlag(cmd.PersistentFlags(), &format)

	cmd.AddCommand(
		newVMStartCommand(st, &format),
		newVMGetCommand(st, &format),
		newVMPruneCommand(st),
		newVMStatusCommand(st),
		newVMQMPCommand(st),
	)

	for _, action := range []struct {
		name  string
		short string
	}{
		{api.ActionSuspend, "Suspend the emulator process by stop request"},
		{api.ActionResume, "Resume a suspended emulator process"},
		{api.ActionPause, "Pause the guest by QMP"},
		{api.ActionContinue, "Continue a paused guest by QMP"},
		{api.ActionShutdown, "Shut the virtual machine down"},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   action.name + " ID",
			Short: action.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}

				info, err := st.client().Action(cmd.Context(), id, action.name)
				if err != nil {
					return err //nolint:wrapcheck
				}

				return writeInfos(st.io.Stdout, format, []registry.Info{info})
			},
		})
	}

	return cmd
}

func parseID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidID, arg)
	}

	return id, nil
}

func newVMStartCommand(st *state, format *outputFormat) *cobra.Command {
	var req supervisor.LaunchRequest

	cmd := &cobra.Command{
		Use:   "start --disk PATH --iso PATH",
		Short: "Launch a virtual machine on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The server may run in a different working directory.
			req, err := absoluteRequest(req)
			if err != nil {
				return err
			}

			info, err := st.client().Start(cmd.Context(), req)
			if err != nil {
				return err //nolint:wrapcheck
			}

			return writeInfos(st.io.Stdout, *format, []registry.Info{info})
		},
	}

	cmd.Flags().StringVar(&req.DiskPath, "disk", "", "disk image attached as first hard disk")
	cmd.Flags().StringVar(&req.ISOPath, "iso", "", "ISO image attached as CD-ROM")

	_ = cmd.MarkFlagRequired("disk")
	_ = cmd.MarkFlagRequired("iso")

	return cmd
}

func absoluteRequest(req supervisor.LaunchRequest) (supervisor.LaunchRequest, error) {
	for _, path := range []*string{&req.DiskPath, &req.ISOPath} {
		if *path == "" {
			continue
		}

		abs, err := sys.AbsolutePath(*path)
		if err != nil {
			return req, err //nolint:wrapcheck
		}

		*path = abs
	}

	return req, nil
}

func newVMGetCommand(st *state, format *outputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a single virtual machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			info, err := st.client().Get(cmd.Context(), id)
			if err != nil {
				return err //nolint:wrapcheck
			}

			return writeInfos(st.io.Stdout, *format, []registry.Info{info})
		},
	}
}

func newVMPruneCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove exited virtual machines from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pruned, err := st.client().Prune(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck
			}

			for _, id := range pruned {
				fmt.Fprintln(st.io.Stdout, id)
			}

			return nil
		},
	}
}

func newVMStatusCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "status ID",
		Short: "Show the guest run state reported by QMP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			status, err := st.client().Status(cmd.Context(), id)
			if err != nil {
				return err //nolint:wrapcheck
			}

			fmt.Fprintln(st.io.Stdout, status.Status)

			return nil
		},
	}
}

func newVMQMPCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "qmp ID COMMAND [ARGUMENTS]",
		Short: "Run a QMP command, arguments given as JSON object",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var arguments json.RawMessage
			if len(args) == 3 {
				arguments = json.RawMessage(args[2])
			}

			ret, err := st.client().Execute(cmd.Context(), id, args[1], arguments)
			if err != nil {
				return err //nolint:wrapcheck
			}

			return writeJSON(st.io.Stdout, ret)
		},
	}
}
