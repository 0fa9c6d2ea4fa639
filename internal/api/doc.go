// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the HTTP control API over a registry of virtual
// machines and a client for it.
//
// Routes:
//
//	POST /vms                  launch, body: {"disk_path": ..., "iso_path": ...}
//	GET  /vms                  list all instances
//	GET  /vms/{id}             get a single instance
//	POST /vms/{id}/suspend     send stop request
//	POST /vms/{id}/resume      continue suspended instance
//	POST /vms/{id}/pause       pause guest by QMP
//	POST /vms/{id}/continue    continue guest by QMP
//	POST /vms/{id}/shutdown    shut down and wait for exit
//	GET  /vms/{id}/status      guest run state by QMP
//	POST /vms/{id}/qmp         run QMP command, body: {"execute": ..., "arguments": ...}
//	POST /vms/prune            remove exited instances
//	GET  /health               liveness
//	GET  /metrics              Prometheus metrics
package api
