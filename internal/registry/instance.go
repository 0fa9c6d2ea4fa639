// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package registry

import (
	"time"

	"github.com/aibor/virtsup/internal/supervisor"
)

// Instance is a virtual machine launched by the registry.
type Instance struct {
	ID        uint64
	Request   supervisor.LaunchRequest
	QMPSocket string
	StartedAt time.Time

	handle *supervisor.ChildHandle
}

// PID returns the process identifier of the instance's child.
func (i *Instance) PID() int {
	return i.handle.PID()
}

// State returns the current lifecycle state.
func (i *Instance) State() supervisor.State {
	return i.handle.State()
}

// Done returns a channel that is closed once the instance has been reaped.
func (i *Instance) Done() <-chan struct{} {
	return i.handle.Done()
}

// Exited returns true if the instance has been reaped.
func (i *Instance) Exited() bool {
	select {
	case <-i.handle.Done():
		return true
	default:
		return false
	}
}

// ExitErr returns the error the instance exited with. It is nil for running
// instances and instances that exited successfully.
func (i *Instance) ExitErr() error {
	if !i.Exited() {
		return nil
	}

	return i.handle.Wait()
}

// Info is a point in time snapshot of an [Instance].
type Info struct {
	ID        uint64           `json:"id"                  yaml:"id"`
	PID       int              `json:"pid"                 yaml:"pid"`
	State     supervisor.State `json:"state"               yaml:"state"`
	DiskPath  string           `json:"disk_path"           yaml:"disk_path"`
	ISOPath   string           `json:"iso_path"            yaml:"iso_path"`
	QMPSocket string           `json:"qmp_socket,omitempty" yaml:"qmp_socket,omitempty"`
	StartedAt time.Time        `json:"started_at"          yaml:"started_at"`
	ExitCode  *int             `json:"exit_code,omitempty" yaml:"exit_code,omitempty"`
}

// Info returns a snapshot of the instance.
func (i *Instance) Info() Info {
	info := Info{
		ID:        i.ID,
		PID:       i.PID(),
		State:     i.State(),
		DiskPath:  i.Request.DiskPath,
		ISOPath:   i.Request.ISOPath,
		QMPSocket: i.QMPSocket,
		StartedAt: i.StartedAt,
	}

	if i.Exited() {
		code := i.handle.ExitCode()
		info.ExitCode = &code
	}

	return info
}
