// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qmp

import (
	"errors"
)

var (
	// ErrNoGreeting is returned if the server did not send a QMP greeting.
	ErrNoGreeting = errors.New("no QMP greeting received")

	// ErrClosed is returned if the client is used after it has been closed.
	ErrClosed = errors.New("client closed")

	// ErrUnexpectedReply is returned if a reply has neither a return value
	// nor an error.
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// Error is an error reply sent by the QMP server.
type Error struct {
	Class string `json:"class"`
	Desc  string `json:"desc"`
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	return "qmp " + e.Class + ": " + e.Desc
}

// Is implements the [errors.Is] interface.
func (*Error) Is(other error) bool {
	_, ok := other.(*Error)
	return ok
}
