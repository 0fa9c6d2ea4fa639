// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"slices"

	"github.com/stretchr/testify/assert"
)

// ArgumentValueAssertionFunc returns an [assert.ComparisonAssertionFunc] that
// can be used to assert the value of the first [Argument] with the given name
// in a []Argument.
func ArgumentValueAssertionFunc(
	name string,
	assertion assert.ComparisonAssertionFunc,
) assert.ComparisonAssertionFunc {
	return func(t assert.TestingT, actual, expected any, msgAndArgs ...any) bool {
		args, ok := actual.([]Argument)
		if !assert.True(t, ok, "actual should be []Argument") {
			return false
		}

		idx := slices.IndexFunc(args, func(a Argument) bool {
			return a.name == name
		})
		if idx == -1 {
			return assert.Fail(t, "argument not found: "+name)
		}

		return assertion(t, args[idx].value, expected, msgAndArgs...)
	}
}
