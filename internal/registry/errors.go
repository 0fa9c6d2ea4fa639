// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package registry

import "errors"

var (
	// ErrUnknownID is returned if no instance with the given ID exists.
	ErrUnknownID = errors.New("unknown instance id")

	// ErrInstanceExited is returned for operations that need a live
	// instance.
	ErrInstanceExited = errors.New("instance exited")

	// ErrNoQMP is returned for QMP operations on instances without QMP
	// socket.
	ErrNoQMP = errors.New("instance has no qmp socket")

	// ErrClosed is returned by [Registry.Start] after [Registry.Close].
	ErrClosed = errors.New("registry closed")
)
