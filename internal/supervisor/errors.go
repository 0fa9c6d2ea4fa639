// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package supervisor

import "errors"

var (
	// ErrInvalidRequest is returned if a [LaunchRequest] is not usable.
	ErrInvalidRequest = errors.New("invalid launch request")

	// ErrAllocationFailed is returned if the emulator command could not be
	// constructed. No process is spawned in this case.
	ErrAllocationFailed = errors.New("command construction failed")

	// ErrSpawnFailed is returned if the OS failed to create the child
	// process.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrSignalHandlerInstallFailed is returned if the stop handler could not
	// be installed in the child.
	ErrSignalHandlerInstallFailed = errors.New("signal handler install failed")

	// ErrUnknownState is returned when parsing an unknown state name.
	ErrUnknownState = errors.New("unknown state")
)

// LaunchError wraps any error that occurred during [Supervisor.Launch]. It
// always wraps one of [ErrInvalidRequest], [ErrAllocationFailed] or
// [ErrSpawnFailed] along with the cause.
type LaunchError struct {
	Kind  error
	Cause error
}

// Error implements the [error] interface.
func (e *LaunchError) Error() string {
	if e.Cause == nil {
		return "launch: " + e.Kind.Error()
	}

	return "launch: " + e.Kind.Error() + ": " + e.Cause.Error()
}

// Is implements the [errors.Is] interface.
func (*LaunchError) Is(other error) bool {
	_, ok := other.(*LaunchError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *LaunchError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}
