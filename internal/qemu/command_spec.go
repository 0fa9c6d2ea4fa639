// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"strconv"
	"strings"

	"github.com/aibor/virtsup/internal/sys"
)

// CommandSpec defines the parameters for a [Command].
type CommandSpec struct {
	// Path or name of the qemu-system binary.
	Executable string

	// Path to the disk image. Attached as first IDE hard disk.
	Disk string

	// Path to the installation or boot image. Attached as CD-ROM.
	ISO string

	// QEMU machine type to use. Depends on the QEMU binary used.
	Machine string

	// CPU type to use. Depends on machine type and QEMU binary used.
	CPU string

	// Number of CPUs for the guest.
	SMP uint64

	// Memory for the machine in MB.
	Memory uint64

	// Disable KVM support.
	NoKVM bool

	// Display backend, like "none", "gtk" or "vnc=:1". QEMU decides if empty.
	Display string

	// Path of the unix socket QEMU serves QMP on. No QMP server is started if
	// empty.
	QMPSocket string

	// ExtraArgs are extra arguments that are passed to the QEMU command. They
	// must not collide with the arguments set by the spec itself or an error
	// is returned by [NewCommand].
	ExtraArgs []Argument
}

// AddDefaultsFor adds architecture specific default values to the given spec if
// the fields are not set yet.
func (s *CommandSpec) AddDefaultsFor(arch sys.Arch) error {
	executable, err := arch.Emulator()
	if err != nil {
		return err //nolint:wrapcheck
	}

	if s.Executable == "" {
		s.Executable = executable
	}

	if !s.NoKVM {
		s.NoKVM = !arch.KVMAvailable()
	}

	return nil
}

// Validate checks the spec for values that can not work.
func (s *CommandSpec) Validate() error {
	if s.Executable == "" {
		return &ArgumentError{Name: "executable", Err: ErrEmptyPath}
	}

	err := validatePath(s.Disk)
	if err != nil {
		return &ArgumentError{Name: "disk", Err: err}
	}

	err = validatePath(s.ISO)
	if err != nil {
		return &ArgumentError{Name: "iso", Err: err}
	}

	if strings.ContainsRune(s.QMPSocket, ',') {
		return &ArgumentError{Name: "qmp socket", Err: ErrCommaInPath}
	}

	return nil
}

func validatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if strings.ContainsRune(path, 0) {
		return ErrInvalidPath
	}

	return nil
}

// arguments compiles the argument list for the QEMU command. The disk and the
// ISO image are always the first two arguments.
func (s *CommandSpec) arguments() []Argument {
	args := []Argument{
		UniqueArg("hda", s.Disk),
		UniqueArg("cdrom", s.ISO),
	}

	if s.Machine != "" {
		args = append(args, UniqueArg("machine", s.Machine))
	}

	if s.CPU != "" {
		args = append(args, UniqueArg("cpu", s.CPU))
	}

	if s.SMP != 0 {
		args = append(args, UniqueArg("smp", strconv.FormatUint(s.SMP, 10)))
	}

	if s.Memory != 0 {
		args = append(args, UniqueArg("m", strconv.FormatUint(s.Memory, 10)))
	}

	if !s.NoKVM {
		args = append(args, UniqueArg("enable-kvm"))
	}

	if s.Display != "" {
		args = append(args, UniqueArg("display", s.Display))
	}

	if s.QMPSocket != "" {
		args = append(args, UniqueArg(
			"qmp",
			"unix:"+s.QMPSocket,
			"server=on",
			"wait=off",
		))
	}

	return append(args, s.ExtraArgs...)
}
