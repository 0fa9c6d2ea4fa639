// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"os"
	"runtime"
)

// Arch is a guest architecture as named by the Go toolchain.
type Arch string

// Supported guest architectures.
const (
	I386    Arch = "386"
	AMD64   Arch = "amd64"
	ARM64   Arch = "arm64"
	RISCV64 Arch = "riscv64"
)

// Native is the architecture of the host. Using the same architecture for the
// guest allows using KVM, if available. Use [Arch.KVMAvailable] to check.
const Native Arch = Arch(runtime.GOARCH)

// kvmDevice is a variable so tests can point it somewhere else.
var kvmDevice = "/dev/kvm"

func (a *Arch) String() string {
	return string(*a)
}

// Type implements [pflag.Value].
func (*Arch) Type() string {
	return "arch"
}

// Set implements [flag.Value].
func (a *Arch) Set(s string) error {
	switch Arch(s) {
	case I386, AMD64, ARM64, RISCV64:
		*a = Arch(s)
	default:
		return ErrArchNotSupported
	}

	return nil
}

func (a *Arch) IsNative() bool {
	// A 64 bit x86 host runs 32 bit guests with hardware support as well.
	if *a == I386 && Native == AMD64 {
		return true
	}

	return Native == *a
}

// KVMAvailable checks if KVM support is available for the given architecture.
func (a *Arch) KVMAvailable() bool {
	if !a.IsNative() {
		return false
	}

	f, err := os.OpenFile(kvmDevice, os.O_WRONLY, 0)
	if err != nil {
		return false
	}

	_ = f.Close()

	return true
}

// Emulator returns the name of the QEMU system emulator binary for the
// architecture.
func (a *Arch) Emulator() (string, error) {
	switch *a {
	case I386:
		return "qemu-system-i386", nil
	case AMD64:
		return "qemu-system-x86_64", nil
	case ARM64:
		return "qemu-system-aarch64", nil
	case RISCV64:
		return "qemu-system-riscv64", nil
	default:
		return "", ErrArchNotSupported
	}
}
