// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aibor/virtsup/internal/config"
	"github.com/aibor/virtsup/internal/sys"
)

const name = "virtsup"

// state is shared by all commands of a single invocation.
type state struct {
	io         IO
	configFile string
	config     *config.Config
}

func newRootCommand(cfg IO) *cobra.Command {
	st := &state{io: cfg}

	root := &cobra.Command{
		Use:   name,
		Short: "Supervise QEMU virtual machines",
		Long: name + ` launches QEMU virtual machines booting from a disk and an ISO
image and controls their lifecycle by signals and QMP.

Configuration is read from the file given by --config, or from
.virtsup/config.yaml or $XDG_CONFIG_HOME/virtsup/config.yaml, from
` + config.EnvPrefix + `_* environment variables and from flags, with increasing
precedence.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: st.load,
	}

	root.SetIn(cfg.Stdin)
	root.SetOut(cfg.Stdout)
	root.SetErr(cfg.Stderr)

	addPersistentFlags(root, st)

	root.AddCommand(
		newLaunchCommand(st),
		newServeCommand(st),
		newListCommand(st),
		newVMCommand(st),
		newConfigCommand(st),
		newVersionCommand(st),
	)

	return root
}

func addPersistentFlags(root *cobra.Command, st *state) {
	flags := root.PersistentFlags()

	var (
		arch   = sys.Native
		smp    = uint64(config.SMPDefault)
		memory = uint64(config.MemoryDefault)
	)

	flags.StringVar(&st.configFile, "config", "", "config file")
	flags.Bool("debug", false, "enable debug logging")

	flags.Var(&arch, "arch", "guest architecture")
	flags.String("qemu-bin", "", "QEMU binary to use (default depends on arch)")
	flags.String("machine", "", "QEMU machine type to use")
	flags.String("cpu", config.CPUDefault, "QEMU CPU type to use")
	flags.Var(
		&LimitedUintValue{
			Value: &smp,
			Lower: config.SMPMin,
			Upper: config.SMPMax,
		},
		"smp",
		"number of CPUs for the guest",
	)
	flags.Var(
		&LimitedUintValue{
			Value: &memory,
			Lower: config.MemoryMin,
			Upper: config.MemoryMax,
		},
		"memory",
		"memory for the guest in MB",
	)
	flags.Bool("nokvm", false, "disable hardware support")
	flags.String("display", config.DisplayDefault, "QEMU display backend")
	flags.String("socket-dir", "", "directory for QMP sockets")
	flags.Duration("grace-period", config.GracePeriodDefault,
		"time to wait for a virtual machine to shut down before it is killed")
}

// load reads the configuration with the flags of the executed command.
func (st *state) load(cmd *cobra.Command, _ []string) error {
	v, err := config.New(st.configFile)
	if err != nil {
		return err //nolint:wrapcheck
	}

	err = config.BindFlags(v, cmd.Flags())
	if err != nil {
		return err //nolint:wrapcheck
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err //nolint:wrapcheck
	}

	setupLogging(st.io.Stderr, logLevel(cfg.Debug))

	st.config = cfg

	return nil
}

// childEnv is the environment passed to children.
func (st *state) childEnv() []string {
	if !st.config.Debug {
		return nil
	}

	return []string{debugEnv + "=1"}
}

func (st *state) ensureSocketDir() error {
	if st.config.SocketDir == "" {
		return nil
	}

	err := os.MkdirAll(st.config.SocketDir, 0o700)
	if err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	return nil
}

func (st *state) gracePeriod() time.Duration {
	return st.config.GracePeriod
}
