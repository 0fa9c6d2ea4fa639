// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qmp implements a minimal client for the QEMU Machine Protocol.
//
// QEMU serves QMP on the socket given by its "-qmp" option. After connecting,
// the server sends a greeting and expects capabilities negotiation before it
// accepts any other command. [Dial] and [NewClient] take care of that. Replies
// are matched to requests by id. Asynchronous events received while waiting
// for a reply are logged and dropped.
package qmp
