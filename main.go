// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aibor/virtsup/internal/cmd"
	"github.com/aibor/virtsup/internal/supervisor"
)

func main() {
	// The supervisor re-executes this binary as the launch child with a
	// dedicated program name. The child sets up its own signal handling.
	if supervisor.IsChild(os.Args) {
		os.Exit(cmd.RunChild(context.Background(), os.Args[1:], os.Stderr))
	}

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGABRT,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGHUP,
	)

	exitCode := cmd.Run(ctx, os.Args[1:], cmd.IO{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})

	cancel()
	os.Exit(exitCode)
}
