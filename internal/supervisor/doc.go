// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package supervisor launches QEMU virtual machines as child processes and
// controls their lifecycle by signals.
//
// A launch re-executes the running binary with [ChildArg0] as argv[0]. The
// binary's main function must dispatch to [RunChild] in this case, see
// [IsChild]. The child installs a stop handler and then runs the emulator
// until it exits. The parent gets a [ChildHandle] immediately and never blocks
// on the emulator.
//
// Child and emulator share a process group of their own, so suspending and
// resuming affects both:
//
//	Created -> Running -> Stopped -> Running -> ... -> Exited
//
// A stop request (SIGTSTP) received by the child is logged and then turned
// into a SIGSTOP for the whole group. SIGSTOP itself can not be caught and
// suspends by default. Resuming is done by SIGCONT, see [ChildHandle.Resume].
package supervisor
