// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import "errors"

var (
	// ErrArgumentCollision is returned if two [Argument]s are considered equal.
	ErrArgumentCollision = errors.New("colliding args")

	// ErrEmptyPath is returned if a required path is empty.
	ErrEmptyPath = errors.New("path must not be empty")

	// ErrInvalidPath is returned if a path can not be passed to the emulator
	// as a single argument.
	ErrInvalidPath = errors.New("path contains NUL byte")

	// ErrCommaInPath is returned if a path that is embedded into a comma
	// separated option value contains a comma.
	ErrCommaInPath = errors.New("path must not contain commas")
)

// ArgumentError indicates an issue with an input argument.
type ArgumentError struct {
	Name string
	Err  error
}

// Error implements the [error] interface.
func (e *ArgumentError) Error() string {
	return "argument " + e.Name + ": " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*ArgumentError) Is(other error) bool {
	_, ok := other.(*ArgumentError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *ArgumentError) Unwrap() error {
	return e.Err
}
