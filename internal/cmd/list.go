// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aibor/virtsup/internal/api"
	"github.com/aibor/virtsup/internal/config"
)

func addServerFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String("server", config.ServerDefault, "control API base URL")
}

func (st *state) client() *api.Client {
	return api.NewClient(st.config.Server)
}

func newListCommand(st *state) *cobra.Command {
	var format outputFormat

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List virtual machines of a server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := st.client().List(cmd.Context())
			if err != nil {
				return err //nolint:wrapcheck
			}

			return writeInfos(st.io.Stdout, format, infos)
		},
	}

	addServerFlag(cmd)
	addOutputFlag(cmd.Flags(), &format)

	return cmd
}
