// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"strconv"
)

var (
	ErrReadBuildInfo = errors.New("failed to read build info")
	ErrInvalidOutput = errors.New("invalid output format")
	ErrInvalidID     = errors.New("invalid instance id")
)

// ExitCodeError carries the exit code of a virtual machine that did not exit
// successfully. It is not printed, just propagated.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return "exit code " + strconv.Itoa(e.Code)
}

func (*ExitCodeError) Is(other error) bool {
	_, ok := other.(*ExitCodeError)
	return ok
}
