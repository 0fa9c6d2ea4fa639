// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package registry keeps track of virtual machines launched by a
// [supervisor.Supervisor].
//
// Instances are identified by monotonically increasing IDs starting at 1.
// Each instance is reaped by a background goroutine as soon as it exits, so no
// zombie processes remain. Exited instances are kept until they are pruned.
package registry
