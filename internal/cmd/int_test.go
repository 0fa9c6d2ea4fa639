// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd_test

import (
	"io"
	"strconv"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/virtsup/internal/cmd"
	"github.com/aibor/virtsup/internal/config"
)

func smpValue() cmd.LimitedUintValue {
	value := uint64(config.SMPDefault)

	return cmd.LimitedUintValue{
		Value: &value,
		Lower: config.SMPMin,
		Upper: config.SMPMax,
	}
}

func memoryValue() cmd.LimitedUintValue {
	value := uint64(config.MemoryDefault)

	return cmd.LimitedUintValue{
		Value: &value,
		Lower: config.MemoryMin,
		Upper: config.MemoryMax,
	}
}

func TestLimitedUintValue_Set(t *testing.T) {
	tests := []struct {
		name        string
		value       cmd.LimitedUintValue
		input       string
		expected    uint64
		expectedErr error
	}{
		{
			name:        "smp empty",
			value:       smpValue(),
			expected:    config.SMPDefault,
			expectedErr: strconv.ErrSyntax,
		},
		{
			name:        "smp negative",
			value:       smpValue(),
			input:       "-2",
			expected:    config.SMPDefault,
			expectedErr: strconv.ErrSyntax,
		},
		{
			name:        "smp zero",
			value:       smpValue(),
			input:       "0",
			expected:    config.SMPDefault,
			expectedErr: cmd.ErrValueOutOfRange,
		},
		{
			name:     "smp minimum",
			value:    smpValue(),
			input:    strconv.Itoa(config.SMPMin),
			expected: config.SMPMin,
		},
		{
			name:     "smp maximum",
			value:    smpValue(),
			input:    strconv.Itoa(config.SMPMax),
			expected: config.SMPMax,
		},
		{
			name:        "smp above maximum",
			value:       smpValue(),
			input:       strconv.Itoa(config.SMPMax + 1),
			expected:    config.SMPDefault,
			expectedErr: cmd.ErrValueOutOfRange,
		},
		{
			name:        "memory below minimum",
			value:       memoryValue(),
			input:       strconv.Itoa(config.MemoryMin - 1),
			expected:    config.MemoryDefault,
			expectedErr: cmd.ErrValueOutOfRange,
		},
		{
			name:     "memory minimum",
			value:    memoryValue(),
			input:    strconv.Itoa(config.MemoryMin),
			expected: config.MemoryMin,
		},
		{
			name:     "memory in range",
			value:    memoryValue(),
			input:    "2048",
			expected: 2048,
		},
		{
			name:     "memory maximum",
			value:    memoryValue(),
			input:    strconv.Itoa(config.MemoryMax),
			expected: config.MemoryMax,
		},
		{
			name:        "memory above maximum",
			value:       memoryValue(),
			input:       strconv.Itoa(config.MemoryMax + 1),
			expected:    config.MemoryDefault,
			expectedErr: cmd.ErrValueOutOfRange,
		},
		{
			name:        "memory with unit",
			value:       memoryValue(),
			input:       "512M",
			expected:    config.MemoryDefault,
			expectedErr: strconv.ErrSyntax,
		},
		{
			name:        "memory longer than 64bit",
			value:       memoryValue(),
			input:       "184467440737095516151111111111111111111",
			expected:    config.MemoryDefault,
			expectedErr: strconv.ErrRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.value.Set(tt.input)
			require.ErrorIs(t, err, tt.expectedErr)
			assert.Equal(t, tt.expected, *tt.value.Value)
		})
	}
}

func TestLimitedUintValue_Flag(t *testing.T) {
	smp := smpValue()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.Var(&smp, "smp", "number of CPUs")

	require.NoError(t, flags.Parse([]string{"--smp", "4"}))
	assert.Equal(t, "4", flags.Lookup("smp").Value.String())

	err := flags.Parse([]string{"--smp", strconv.Itoa(config.SMPMax + 1)})
	require.ErrorContains(t, err, config.ErrValueOutOfRange.Error())
	assert.Equal(t, uint64(4), *smp.Value)
}

func TestLimitedUintValue_String(t *testing.T) {
	memory := memoryValue()

	assert.Equal(t, "0", (&cmd.LimitedUintValue{}).String())
	assert.Equal(t, strconv.Itoa(config.MemoryDefault), memory.String())
	assert.Equal(t, "uint", memory.Type())
}
