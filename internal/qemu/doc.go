// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qemu provides utilities for composing QEMU system emulator commands
// that boot a virtual machine from a disk image and an installation image.
//
// Commands are always built as argument vectors. Paths are passed to the
// emulator as single arguments and are never interpreted by a shell, so
// characters like ";" or "$" in a path have no special meaning.
package qemu
