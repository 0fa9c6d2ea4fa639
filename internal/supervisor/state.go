// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package supervisor

import (
	"fmt"
	"slices"
)

// State is the lifecycle state of a launched virtual machine.
type State int

const (
	// StateCreated is the state before the child process is spawned.
	StateCreated State = iota
	// StateRunning is the state of a spawned child that is not suspended.
	StateRunning
	// StateStopped is the state of a suspended child. It can be resumed.
	StateStopped
	// StateExited is the terminal state.
	StateExited
)

var stateNames = [...]string{
	StateCreated: "created",
	StateRunning: "running",
	StateStopped: "stopped",
	StateExited:  "exited",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// MarshalText implements [encoding.TextMarshaler].
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *State) UnmarshalText(text []byte) error {
	idx := slices.Index(stateNames[:], string(text))
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownState, text)
	}

	*s = State(idx)

	return nil
}
