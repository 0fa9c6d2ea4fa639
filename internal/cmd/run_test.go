// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/virtsup/internal/api"
	"github.com/aibor/virtsup/internal/cmd"
	"github.com/aibor/virtsup/internal/registry"
	"github.com/aibor/virtsup/internal/supervisor"
	"github.com/aibor/virtsup/internal/supervisor/supervisortest"
)

type result struct {
	exitCode int
	stdout   string
	stderr   string
}

func run(t *testing.T, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer

	exitCode := cmd.Run(t.Context(), args, cmd.IO{
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
	})

	return result{
		exitCode: exitCode,
		stdout:   stdout.String(),
		stderr:   stderr.String(),
	}
}

func TestRun_Version(t *testing.T) {
	t.Chdir(t.TempDir())

	res := run(t, "version")

	assert.Equal(t, 0, res.exitCode, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "Version: "), res.stdout)
}

func TestRun_Config(t *testing.T) {
	t.Chdir(t.TempDir())

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("emulator:\n  machine: q35\n"), 0o600))

	t.Setenv("VIRTSUP_EMULATOR_CPU", "host")

	res := run(t, "--config", configFile, "--memory", "512", "config")

	require.Equal(t, 0, res.exitCode, res.stderr)
	assert.Contains(t, res.stdout, "machine: q35")
	assert.Contains(t, res.stdout, "cpu: host")
	assert.Contains(t, res.stdout, "memory: 512")
}

func TestRun_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		args []string
	}{
		{
			name: "memory out of range",
			args: []string{"--memory", "64", "config"},
		},
		{
			name: "unknown arch",
			args: []string{"--arch", "mips", "config"},
		},
		{
			name: "missing config file",
			args: []string{"--config", "/nonexistent/virtsup.yaml", "config"},
		},
		{
			name: "launch without iso",
			args: []string{"launch", "--disk", "disk.img"},
		},
		{
			name: "launch with empty disk",
			args: []string{"launch", "--disk", "", "--iso", "boot.iso"},
		},
		{
			name: "invalid output",
			args: []string{"list", "-o", "xml"},
		},
		{
			name: "invalid id",
			args: []string{"vm", "get", "abc"},
		},
		{
			name: "unknown command",
			args: []string{"explode"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, tt.args...)
			assert.Equal(t, 1, res.exitCode)
			assert.Contains(t, res.stderr, "level=ERROR")
		})
	}
}

func TestRun_LaunchWait(t *testing.T) {
	t.Chdir(t.TempDir())

	self, err := os.Executable()
	require.NoError(t, err)

	t.Setenv(supervisortest.EnvEmulator, "1")

	t.Run("exit code propagated", func(t *testing.T) {
		t.Setenv(supervisortest.EnvExitCode, "5")

		res := run(t, "--qemu-bin", self, "--nokvm",
			"launch", "--disk", "disk.img", "--iso", "boot.iso", "--wait")

		assert.Equal(t, 5, res.exitCode, res.stderr)
		assert.NotContains(t, res.stderr, "level=ERROR")
	})

	t.Run("success", func(t *testing.T) {
		t.Setenv(supervisortest.EnvExitCode, "0")

		res := run(t, "--qemu-bin", self, "--nokvm",
			"launch", "--disk", "disk.img", "--iso", "boot.iso", "--wait")

		assert.Equal(t, 0, res.exitCode, res.stderr)
		assert.Regexp(t, `^\d+\n$`, res.stdout)
	})
}

func TestRun_ListAndControl(t *testing.T) {
	t.Chdir(t.TempDir())

	reg := registry.New(supervisortest.New(t), registry.Options{})
	server := httptest.NewServer(api.NewRouter(reg, nil))

	t.Cleanup(func() {
		server.Close()
		assert.NoError(t, reg.Close())
	})

	res := run(t, "vm", "--server", server.URL, "-o", "json",
		"start", "--disk", "disk.img", "--iso", "boot.iso")
	require.Equal(t, 0, res.exitCode, res.stderr)

	var started []registry.Info

	require.NoError(t, json.Unmarshal([]byte(res.stdout), &started))
	require.Len(t, started, 1)
	assert.True(t, filepath.IsAbs(started[0].DiskPath), started[0].DiskPath)
	assert.Equal(t, "boot.iso", filepath.Base(started[0].ISOPath))

	res = run(t, "list", "--server", server.URL, "-o", "json")
	require.Equal(t, 0, res.exitCode, res.stderr)

	var listed []registry.Info

	require.NoError(t, json.Unmarshal([]byte(res.stdout), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, started[0].PID, listed[0].PID)

	res = run(t, "list", "--server", server.URL)
	require.Equal(t, 0, res.exitCode, res.stderr)
	assert.Contains(t, res.stdout, "disk.img")

	res = run(t, "vm", "--server", server.URL, "-o", "yaml", "shutdown", "1")
	require.Equal(t, 0, res.exitCode, res.stderr)
	assert.Contains(t, res.stdout, "state: exited")

	res = run(t, "vm", "--server", server.URL, "prune")
	require.Equal(t, 0, res.exitCode, res.stderr)
	assert.Equal(t, "1\n", res.stdout)

	res = run(t, "vm", "--server", server.URL, "get", "1")
	assert.Equal(t, 1, res.exitCode)
	assert.Contains(t, res.stderr, "404")

	instance := supervisor.LaunchRequest{DiskPath: "disk.img", ISOPath: "boot.iso"}
	_, err := reg.Start(t.Context(), instance)
	require.NoError(t, err)

	res = run(t, "vm", "--server", server.URL, "pause", "2")
	assert.Equal(t, 1, res.exitCode)
	assert.Contains(t, res.stderr, "409")
}
