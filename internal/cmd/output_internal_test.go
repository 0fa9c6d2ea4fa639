// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aibor/virtsup/internal/registry"
	"github.com/aibor/virtsup/internal/supervisor"
)

func TestOutputFormat_Set(t *testing.T) {
	var format outputFormat

	for _, valid := range []string{"table", "yaml", "json"} {
		require.NoError(t, format.Set(valid))
		assert.Equal(t, valid, format.String())
	}

	require.ErrorIs(t, format.Set("xml"), ErrInvalidOutput)
	assert.Equal(t, "json", format.String())
}

func TestWriteInfos(t *testing.T) {
	exitCode := 3
	infos := []registry.Info{
		{
			ID:        1,
			PID:       1234,
			State:     supervisor.StateStopped,
			DiskPath:  "disk.img",
			ISOPath:   "boot.iso",
			StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		{
			ID:        2,
			PID:       1240,
			State:     supervisor.StateExited,
			DiskPath:  "other.img",
			ISOPath:   "other.iso",
			StartedAt: time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC),
			ExitCode:  &exitCode,
		},
	}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, writeInfos(&buf, outputTable, infos))

		out := buf.String()
		for _, expected := range []string{
			"1234", "stopped", "disk.img", "boot.iso", "2026-01-02T03:04:05Z",
			"1240", "exited", "other.img",
		} {
			assert.Contains(t, out, expected)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, writeInfos(&buf, outputJSON, infos))

		var actual []registry.Info

		require.NoError(t, json.Unmarshal(buf.Bytes(), &actual))
		assert.Equal(t, infos, actual)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, writeInfos(&buf, outputYAML, infos))

		var actual []map[string]any

		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &actual))
		require.Len(t, actual, 2)
		assert.Equal(t, "stopped", actual[0]["state"])
		assert.Equal(t, "disk.img", actual[0]["disk_path"])
		assert.NotContains(t, actual[0], "exit_code")
		assert.Equal(t, 3, actual[1]["exit_code"])
	})
}
