// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu_test

import (
	"testing"

	"github.com/aibor/virtsup/internal/qemu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgumentStrings(t *testing.T) {
	tests := []struct {
		name        string
		args        []qemu.Argument
		expected    []string
		expectedErr error
	}{
		{
			name:     "empty",
			expected: []string{},
		},
		{
			name: "values are single elements",
			args: []qemu.Argument{
				qemu.UniqueArg("hda", "/vm/my disk.img"),
				qemu.UniqueArg("cdrom", "a; rm -rf /tmp/x"),
				qemu.UniqueArg("no-reboot"),
			},
			expected: []string{
				"-hda", "/vm/my disk.img",
				"-cdrom", "a; rm -rf /tmp/x",
				"-no-reboot",
			},
		},
		{
			name: "repeatable",
			args: []qemu.Argument{
				qemu.RepeatableArg("device", "virtio-rng-pci"),
				qemu.RepeatableArg("device", "virtio-balloon"),
			},
			expected: []string{
				"-device", "virtio-rng-pci",
				"-device", "virtio-balloon",
			},
		},
		{
			name: "unique collision",
			args: []qemu.Argument{
				qemu.UniqueArg("hda", "a.img"),
				qemu.UniqueArg("hda", "b.img"),
			},
			expectedErr: qemu.ErrArgumentCollision,
		},
		{
			name: "repeatable collision",
			args: []qemu.Argument{
				qemu.RepeatableArg("device", "virtio-rng-pci"),
				qemu.RepeatableArg("device", "virtio-rng-pci"),
			},
			expectedErr: qemu.ErrArgumentCollision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := qemu.BuildArgumentStrings(tt.args)
			require.ErrorIs(t, err, tt.expectedErr)
			assert.Equal(t, tt.expected, actual)
		})
	}
}
