// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package supervisortest lets test binaries act as supervisor child and as
// fake emulator, so launches can be tested without QEMU.
//
// A test package using it must call [Main] at the very beginning of its
// TestMain function:
//
//	func TestMain(m *testing.M) {
//		if code, ok := supervisortest.Main(); ok {
//			os.Exit(code)
//		}
//
//		os.Exit(m.Run())
//	}
package supervisortest

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/aibor/virtsup/internal/qemu"
	"github.com/aibor/virtsup/internal/qmp/qmptest"
	"github.com/aibor/virtsup/internal/supervisor"
)

// Environment variables controlling the fake emulator.
const (
	EnvEmulator = "VIRTSUP_TEST_EMULATOR"
	EnvArgsFile = "VIRTSUP_TEST_ARGS_FILE"
	EnvExitCode = "VIRTSUP_TEST_EXIT_CODE"
)

// Main dispatches to the child branch or the fake emulator. It returns false
// if the process is neither and the tests should be run.
func Main() (int, bool) {
	switch {
	case supervisor.IsChild(os.Args):
		return supervisor.RunChild(context.Background(), os.Args[1:]), true
	case os.Getenv(EnvEmulator) != "":
		return fakeEmulator(os.Args[1:]), true
	default:
		return 0, false
	}
}

// New returns a [supervisor.Supervisor] that launches the test binary as
// child and as emulator. Additional environment variables for the fake
// emulator can be given as "KEY=VALUE".
func New(tb testing.TB, env ...string) *supervisor.Supervisor {
	tb.Helper()

	self, err := os.Executable()
	require.NoError(tb, err)

	sup := supervisor.New(qemu.CommandSpec{
		Executable: self,
		NoKVM:      true,
		Display:    "none",
	})
	sup.Self = self
	sup.Env = append([]string{EnvEmulator + "=1"}, env...)

	return sup
}

// ArgsFile returns the environment variable that makes the fake emulator
// write its arguments into a file in a new temporary directory and the path
// of that file.
func ArgsFile(tb testing.TB) (string, string) {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "args.json")

	return EnvArgsFile + "=" + path, path
}

// ReadArgs reads the arguments written by the fake emulator.
func ReadArgs(tb testing.TB, path string) []string {
	tb.Helper()

	data, err := os.ReadFile(path)
	require.NoError(tb, err)

	var args []string

	require.NoError(tb, json.Unmarshal(data, &args))

	return args
}

// fakeEmulator records its arguments, serves QMP if requested and runs until
// it is terminated or QMP "quit" is received.
func fakeEmulator(args []string) int {
	if path := os.Getenv(EnvArgsFile); path != "" {
		err := writeArgs(path, args)
		if err != nil {
			return 1
		}
	}

	if code := os.Getenv(EnvExitCode); code != "" {
		rc, err := strconv.Atoi(code)
		if err != nil {
			return 1
		}

		return rc
	}

	ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGTERM, unix.SIGINT)
	defer cancel()

	var quit <-chan struct{}

	if socket := qmpSocket(args); socket != "" {
		listener, err := net.Listen("unix", socket)
		if err != nil {
			return 1
		}
		defer listener.Close()

		server := qmptest.NewServer()
		defer server.Close()

		go func() { _ = server.Serve(listener) }()

		quit = server.Quit()
	}

	select {
	case <-ctx.Done():
	case <-quit:
	}

	return 0
}

func writeArgs(path string, args []string) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err //nolint:wrapcheck
	}

	// Write atomically, so readers never see partial content.
	tmp := path + ".tmp"

	err = os.WriteFile(tmp, data, 0o600)
	if err != nil {
		return err //nolint:wrapcheck
	}

	return os.Rename(tmp, path) //nolint:wrapcheck
}

func qmpSocket(args []string) string {
	idx := slices.Index(args, "-qmp")
	if idx < 0 || idx+1 >= len(args) {
		return ""
	}

	value, found := strings.CutPrefix(args[idx+1], "unix:")
	if !found {
		return ""
	}

	socket, _, _ := strings.Cut(value, ",")

	return socket
}
