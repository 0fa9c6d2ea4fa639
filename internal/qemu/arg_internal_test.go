// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgument_Equal(t *testing.T) {
	tests := []struct {
		name  string
		a     Argument
		b     Argument
		equal bool
	}{
		{
			name:  "both empty",
			equal: true,
		},
		{
			name: "one empty",
			a:    Argument{name: "hda"},
		},
		{
			name:  "same unique name",
			a:     Argument{name: "hda", value: "a.img"},
			b:     Argument{name: "hda", value: "b.img"},
			equal: true,
		},
		{
			name: "same repeatable name",
			a:    Argument{name: "device", value: "a", repeatable: true},
			b:    Argument{name: "device", value: "b", repeatable: true},
		},
		{
			name:  "same repeatable name and value",
			a:     Argument{name: "device", value: "a", repeatable: true},
			b:     Argument{name: "device", value: "a", repeatable: true},
			equal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
		})
	}
}

func TestArgument_String(t *testing.T) {
	assert.Equal(t, "-no-reboot", UniqueArg("no-reboot").String())
	assert.Equal(t, "-m 512", UniqueArg("m", "512").String())
	assert.Equal(t, "-device a,b", RepeatableArg("device", "a", "b").String())
}
