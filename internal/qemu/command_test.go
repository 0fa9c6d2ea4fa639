// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu_test

import (
	"testing"

	"github.com/aibor/virtsup/internal/qemu"
	"github.com/aibor/virtsup/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommand(t *testing.T) {
	tests := []struct {
		name         string
		spec         qemu.CommandSpec
		expectedArgv []string
		expectedErr  error
	}{
		{
			name: "minimal",
			spec: qemu.CommandSpec{
				Executable: "qemu-system-i386",
				Disk:       "/vm/disk.img",
				ISO:        "/iso/boot.iso",
				NoKVM:      true,
			},
			expectedArgv: []string{
				"qemu-system-i386",
				"-hda", "/vm/disk.img",
				"-cdrom", "/iso/boot.iso",
			},
		},
		{
			name: "shell metacharacters are plain arguments",
			spec: qemu.CommandSpec{
				Executable: "qemu-system-i386",
				Disk:       "a; rm -rf /tmp/x",
				ISO:        "$(reboot).iso",
				NoKVM:      true,
			},
			expectedArgv: []string{
				"qemu-system-i386",
				"-hda", "a; rm -rf /tmp/x",
				"-cdrom", "$(reboot).iso",
			},
		},
		{
			name: "missing executable",
			spec: qemu.CommandSpec{
				Disk: "/vm/disk.img",
				ISO:  "/iso/boot.iso",
			},
			expectedErr: qemu.ErrEmptyPath,
		},
		{
			name: "missing disk",
			spec: qemu.CommandSpec{
				Executable: "qemu-system-i386",
				ISO:        "/iso/boot.iso",
			},
			expectedErr: qemu.ErrEmptyPath,
		},
		{
			name: "NUL in iso",
			spec: qemu.CommandSpec{
				Executable: "qemu-system-i386",
				Disk:       "/vm/disk.img",
				ISO:        "/iso/boot\x00.iso",
			},
			expectedErr: qemu.ErrInvalidPath,
		},
		{
			name: "comma in qmp socket",
			spec: qemu.CommandSpec{
				Executable: "qemu-system-i386",
				Disk:       "/vm/disk.img",
				ISO:        "/iso/boot.iso",
				QMPSocket:  "/run/a,b.sock",
			},
			expectedErr: qemu.ErrCommaInPath,
		},
		{
			name: "colliding extra args",
			spec: qemu.CommandSpec{
				Executable: "qemu-system-i386",
				Disk:       "/vm/disk.img",
				ISO:        "/iso/boot.iso",
				ExtraArgs:  []qemu.Argument{qemu.UniqueArg("hda", "/other.img")},
			},
			expectedErr: qemu.ErrArgumentCollision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := qemu.NewCommand(tt.spec)
			require.ErrorIs(t, err, tt.expectedErr)

			if tt.expectedErr != nil {
				assert.Nil(t, cmd)
				return
			}

			assert.Equal(t, tt.expectedArgv, cmd.Argv())
			assert.Equal(t, tt.expectedArgv[0], cmd.Executable())
			assert.Equal(t, tt.expectedArgv[1:], cmd.Args())
		})
	}
}

func TestNewCommand_ValidationErrorType(t *testing.T) {
	_, err := qemu.NewCommand(qemu.CommandSpec{Executable: "qemu"})

	var argErr *qemu.ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "disk", argErr.Name)
}

func TestCommand_String(t *testing.T) {
	cmd, err := qemu.NewCommand(qemu.CommandSpec{
		Executable: "qemu-system-i386",
		Disk:       "/vm/my disk.img",
		ISO:        "/iso/boot.iso",
		NoKVM:      true,
	})
	require.NoError(t, err)

	expected := `qemu-system-i386 -hda "/vm/my disk.img" -cdrom /iso/boot.iso`
	assert.Equal(t, expected, cmd.String())
}

func TestCommandSpec_AddDefaultsFor(t *testing.T) {
	t.Run("keeps set executable", func(t *testing.T) {
		spec := qemu.CommandSpec{Executable: "/opt/qemu/bin/qemu", NoKVM: true}
		require.NoError(t, spec.AddDefaultsFor(sys.ARM64))
		assert.Equal(t, "/opt/qemu/bin/qemu", spec.Executable)
		assert.True(t, spec.NoKVM)
	})

	t.Run("sets executable", func(t *testing.T) {
		spec := qemu.CommandSpec{}
		require.NoError(t, spec.AddDefaultsFor(sys.I386))
		assert.Equal(t, "qemu-system-i386", spec.Executable)
	})

	t.Run("unsupported", func(t *testing.T) {
		spec := qemu.CommandSpec{}
		err := spec.AddDefaultsFor(sys.Arch("vax"))
		require.ErrorIs(t, err, sys.ErrArchNotSupported)
	})
}
