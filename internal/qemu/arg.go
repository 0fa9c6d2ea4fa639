// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"slices"
	"strings"
)

// Argument is a single emulator option with or without value.
//
// Unless created with [RepeatableArg], its name may occur only once in an
// argument list.
type Argument struct {
	name       string
	value      string
	repeatable bool
}

// String implements [fmt.Stringer].
func (a Argument) String() string {
	s := "-" + a.name
	if a.value != "" {
		s += " " + a.value
	}

	return s
}

// Equal compares the [Argument]s.
//
// Unique arguments are equal if their names match. Repeatable ones must
// match in value as well.
func (a Argument) Equal(other Argument) bool {
	if a.name != other.name {
		return false
	}

	if a.repeatable {
		return a.value == other.value
	}

	return true
}

// UniqueArg returns a new [Argument] with the given name that is marked as
// unique and so can be used in an argument list only once. Multiple values are
// joined with commas.
func UniqueArg(name string, value ...string) Argument {
	return Argument{
		name:  name,
		value: strings.Join(value, ","),
	}
}

// RepeatableArg returns a new [Argument] with the given name that is not
// unique and so can be used in an argument list multiple times.
func RepeatableArg(name string, value ...string) Argument {
	return Argument{
		name:          name,
		value:         strings.Join(value, ","),
		repeatable: true,
	}
}

// BuildArgumentStrings compiles the [Argument]s into a slice of strings which
// can be used with [exec.Command]. Every value is a single element. Nothing is
// ever interpreted by a shell.
//
// It returns an error if any name uniqueness constraints of any [Argument] is
// violated.
func BuildArgumentStrings(args []Argument) ([]string, error) {
	argv := make([]string, 0, 2*len(args))

	for idx, arg := range args {
		if i := slices.IndexFunc(args[:idx], arg.Equal); i != -1 {
			return nil, fmt.Errorf(
				"%w: %s, %s",
				ErrArgumentCollision,
				arg.String(),
				args[i].String(),
			)
		}

		argv = append(argv, "-"+arg.name)

		if arg.value != "" {
			argv = append(argv, arg.value)
		}
	}

	return argv, nil
}
