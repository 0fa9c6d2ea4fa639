// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set on build.
var buildVersion = ""

func newVersionCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintf(st.io.Stdout, "Version: %s\n", version())
			return nil
		},
	}
}

func version() string {
	if buildVersion != "" {
		return buildVersion
	}

	buildInfo, err := getBuildInfo()
	if err != nil {
		return "unknown"
	}

	return buildInfo.Main.Version
}

func getBuildInfo() (*debug.BuildInfo, error) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, ErrReadBuildInfo
	}

	return buildInfo, nil
}
