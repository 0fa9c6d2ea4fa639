// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package supervisor

import (
	"errors"
	"strings"
)

var (
	errEmptyPath = errors.New("path must not be empty")
	errNULInPath = errors.New("path must not contain NUL bytes")
)

// LaunchRequest identifies the images a virtual machine is booted from.
//
// The paths are passed to the emulator verbatim as single arguments. They are
// neither opened nor checked for existence. Shell metacharacters have no
// special meaning.
type LaunchRequest struct {
	DiskPath string `json:"disk_path" yaml:"disk_path"`
	ISOPath  string `json:"iso_path"  yaml:"iso_path"`
}

// Validate checks that both paths can be passed as arguments.
func (r LaunchRequest) Validate() error {
	for _, field := range []struct{ name, path string }{
		{"disk path", r.DiskPath},
		{"iso path", r.ISOPath},
	} {
		switch {
		case field.path == "":
			return &LaunchError{Kind: ErrInvalidRequest, Cause: prefixed(field.name, errEmptyPath)}
		case strings.ContainsRune(field.path, 0):
			return &LaunchError{Kind: ErrInvalidRequest, Cause: prefixed(field.name, errNULInPath)}
		}
	}

	return nil
}

type prefixedError struct {
	prefix string
	err    error
}

func (e *prefixedError) Error() string {
	return e.prefix + ": " + e.err.Error()
}

func (e *prefixedError) Unwrap() error {
	return e.err
}

func prefixed(prefix string, err error) error {
	return &prefixedError{prefix: prefix, err: err}
}
