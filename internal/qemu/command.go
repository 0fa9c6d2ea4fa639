// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Command is a fully assembled emulator invocation.
type Command struct {
	executable string
	args       []string
	qmpSocket  string
}

// NewCommand validates the given spec and assembles the argument vector.
func NewCommand(spec CommandSpec) (*Command, error) {
	err := spec.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	args, err := BuildArgumentStrings(spec.arguments())
	if err != nil {
		return nil, fmt.Errorf("build arguments: %w", err)
	}

	return &Command{
		executable: spec.Executable,
		args:       args,
		qmpSocket:  spec.QMPSocket,
	}, nil
}

// Executable returns the emulator binary.
func (c *Command) Executable() string {
	return c.executable
}

// Args returns a copy of the arguments without the executable.
func (c *Command) Args() []string {
	return slices.Clone(c.args)
}

// Argv returns the complete argument vector including the executable.
func (c *Command) Argv() []string {
	return append([]string{c.executable}, c.args...)
}

// QMPSocket returns the QMP socket path or an empty string if QMP is not
// enabled.
func (c *Command) QMPSocket() string {
	return c.qmpSocket
}

// String returns a human readable representation of the command. Arguments
// containing white space or quotes are quoted.
func (c *Command) String() string {
	argv := c.Argv()
	for idx, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'") {
			argv[idx] = strconv.Quote(arg)
		}
	}

	return strings.Join(argv, " ")
}
