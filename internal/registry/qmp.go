// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/aibor/virtsup/internal/qmp"
)

const (
	// qmpTimeout limits every QMP operation including connecting.
	qmpTimeout = 5 * time.Second

	// The emulator creates the socket some time after it has been started.
	qmpDialInterval = 50 * time.Millisecond
)

// Pause stops the guest CPUs by QMP. The emulator process keeps running.
func (r *Registry) Pause(ctx context.Context, id uint64) error {
	return r.qmp(ctx, id, func(ctx context.Context, client *qmp.Client) error {
		return client.Stop(ctx)
	})
}

// Continue resumes the guest CPUs paused by [Registry.Pause].
func (r *Registry) Continue(ctx context.Context, id uint64) error {
	return r.qmp(ctx, id, func(ctx context.Context, client *qmp.Client) error {
		return client.Cont(ctx)
	})
}

// Status returns the guest run state as reported by QMP.
func (r *Registry) Status(ctx context.Context, id uint64) (qmp.Status, error) {
	var status qmp.Status

	err := r.qmp(ctx, id, func(ctx context.Context, client *qmp.Client) error {
		var err error

		status, err = client.QueryStatus(ctx)

		return err //nolint:wrapcheck
	})

	return status, err
}

// Execute runs an arbitrary QMP command and returns its raw return value.
func (r *Registry) Execute(
	ctx context.Context,
	id uint64,
	command string,
	arguments json.RawMessage,
) (json.RawMessage, error) {
	var ret json.RawMessage

	err := r.qmp(ctx, id, func(ctx context.Context, client *qmp.Client) error {
		var args any
		if len(arguments) > 0 {
			args = arguments
		}

		var err error

		ret, err = client.Execute(ctx, command, args)

		return err //nolint:wrapcheck
	})

	return ret, err
}

func (r *Registry) qmp(
	ctx context.Context,
	id uint64,
	fn func(context.Context, *qmp.Client) error,
) error {
	instance, err := r.live(id)
	if err != nil {
		return err
	}

	if instance.QMPSocket == "" {
		return fmt.Errorf("%w: %d", ErrNoQMP, id)
	}

	ctx, cancel := context.WithTimeout(ctx, qmpTimeout)
	defer cancel()

	return r.withQMP(ctx, instance, fn)
}

func (*Registry) withQMP(
	ctx context.Context,
	instance *Instance,
	fn func(context.Context, *qmp.Client) error,
) error {
	client, err := dialQMP(ctx, instance.QMPSocket)
	if err != nil {
		return fmt.Errorf("qmp: %w", err)
	}
	defer client.Close()

	err = fn(ctx, client)
	if err != nil {
		return fmt.Errorf("qmp: %w", err)
	}

	return nil
}

func quitQMP(ctx context.Context, client *qmp.Client) error {
	return client.Quit(ctx) //nolint:wrapcheck
}

// dialQMP connects to the socket. Connecting is retried as long as the socket
// does not exist or does not accept connections yet.
func dialQMP(ctx context.Context, socket string) (*qmp.Client, error) {
	ticker := time.NewTicker(qmpDialInterval)
	defer ticker.Stop()

	for {
		client, err := qmp.Dial(ctx, socket)
		if err == nil {
			return client, nil
		}

		if !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.ECONNREFUSED) {
			return nil, err //nolint:wrapcheck
		}

		slog.Debug("QMP socket not ready", slog.String("socket", socket))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-ticker.C:
		}
	}
}
