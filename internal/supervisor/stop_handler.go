// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// StopSignal is the catchable stop request handled by the child. SIGSTOP
// itself can not be caught.
const StopSignal = unix.SIGTSTP

// StopHandler suspends the process group of the child on stop requests.
type StopHandler struct {
	signals     chan os.Signal
	installedAt time.Time
	target      int
	suspend     func(target int) error
}

// Process-wide handler state. Signal dispositions are process-wide as well.
var installed struct {
	once    sync.Once
	handler *StopHandler
	err     error
}

// InstallStopHandler registers the handler for [StopSignal]. It must be
// called in the child only. The handler is installed once per process. Further
// calls return the same handler and error.
//
// Stop requests are not lost between installation and [StopHandler.Run]. A
// single pending request is buffered.
func InstallStopHandler() (*StopHandler, error) {
	installed.once.Do(func() {
		installed.handler, installed.err = installStopHandler()
	})

	return installed.handler, installed.err
}

func installStopHandler() (*StopHandler, error) {
	pgid, err := unix.Getpgid(0)
	if err != nil {
		return nil, fmt.Errorf("%w: get process group: %w", ErrSignalHandlerInstallFailed, err)
	}

	// Only suspend the whole group if it is ours. Otherwise, the supervisor
	// or an interactive shell would be suspended as well.
	target := -pgid
	if pid := os.Getpid(); pgid != pid {
		target = pid
	}

	handler := &StopHandler{
		signals:     make(chan os.Signal, 1),
		installedAt: time.Now(),
		target:      target,
		suspend: func(target int) error {
			return unix.Kill(target, unix.SIGSTOP)
		},
	}

	signal.Notify(handler.signals, StopSignal)

	slog.Debug("Stop handler installed",
		slog.Int("target", target),
		slog.Time("installed_at", handler.installedAt))

	return handler, nil
}

// InstalledAt returns the time the handler was installed.
func (h *StopHandler) InstalledAt() time.Time {
	return h.installedAt
}

// Run handles stop requests until the context is canceled. Each request is
// logged with its signal number and then turned into a SIGSTOP. A failed
// suspend is logged right away and does not end the handling of further
// requests.
func (h *StopHandler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-h.signals:
			signum, _ := sig.(unix.Signal)

			slog.Info("Stop requested",
				slog.Int("signal", int(signum)),
				slog.Int("pid", os.Getpid()))

			err := h.suspend(h.target)
			if err != nil {
				slog.Error("Suspend failed",
					slog.Int("target", h.target),
					slog.Any("error", err))

				continue
			}

			slog.Debug("Continued", slog.Int("pid", os.Getpid()))
		}
	}
}
