// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aibor/virtsup/internal/qmp"
	"github.com/aibor/virtsup/internal/registry"
	"github.com/aibor/virtsup/internal/supervisor"
)

// ErrBadRequest is returned for malformed requests.
var ErrBadRequest = errors.New("bad request")

// StatusError is returned by [Client] for error responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return strconv.Itoa(e.Code) + " " + http.StatusText(e.Code) + ": " + e.Message
}

// Is implements the [errors.Is] interface.
func (*StatusError) Is(other error) bool {
	_, ok := other.(*StatusError)
	return ok
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownID):
		return http.StatusNotFound
	case errors.Is(err, supervisor.ErrInvalidRequest),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, &qmp.Error{}):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrInstanceExited),
		errors.Is(err, registry.ErrNoQMP):
		return http.StatusConflict
	case errors.Is(err, registry.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
