// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aibor/virtsup/internal/supervisor"
)

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run is the main entry point for the CLI command. The arguments must not
// contain the program name. It returns the exit code.
func Run(ctx context.Context, args []string, cfg IO) int {
	setupLogging(cfg.Stderr, logLevel(false))

	root := newRootCommand(cfg)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil {
		return handleRunError(err)
	}

	return 0
}

// RunChild is the entry point for the child branch of a launch.
func RunChild(ctx context.Context, argv []string, stderr io.Writer) int {
	setupLogging(stderr, childLogLevel())

	return supervisor.RunChild(ctx, argv)
}

func handleRunError(err error) int {
	// Do not print the error in case the virtual machine ran and
	// communicated a non-zero exit code.
	var exitCodeErr *ExitCodeError
	if errors.As(err, &exitCodeErr) {
		return exitCodeErr.Code
	}

	slog.Error(err.Error())

	return 1
}
