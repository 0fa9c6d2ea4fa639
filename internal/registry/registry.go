// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aibor/virtsup/internal/metrics"
	"github.com/aibor/virtsup/internal/supervisor"
)

// DefaultGracePeriod is the time an instance has to exit after it has been
// asked to shut down before it is killed.
const DefaultGracePeriod = 10 * time.Second

// Options configure a [Registry].
type Options struct {
	// SocketDir is the directory QMP sockets are created in. QMP is disabled
	// if empty.
	SocketDir string

	// GracePeriod is the time an instance has to shut down before it is
	// killed. [DefaultGracePeriod] is used if zero.
	GracePeriod time.Duration

	// Metrics collects launch, signal and exit statistics. Optional.
	Metrics *metrics.Metrics
}

// Registry tracks launched instances. It is safe for concurrent use.
type Registry struct {
	supervisor *supervisor.Supervisor
	opts       Options

	mu        sync.Mutex
	lastID    uint64
	instances map[uint64]*Instance
	closed    bool

	reapers sync.WaitGroup
}

// New creates a new [Registry] launching instances with the given
// supervisor.
func New(sup *supervisor.Supervisor, opts Options) *Registry {
	if opts.GracePeriod == 0 {
		opts.GracePeriod = DefaultGracePeriod
	}

	r := &Registry{
		supervisor: sup,
		opts:       opts,
		instances:  make(map[uint64]*Instance),
	}

	err := opts.Metrics.RegisterInstances(r.countStates)
	if err != nil {
		slog.Warn("Register instance metrics", slog.Any("error", err))
	}

	return r
}

// Start launches a new instance for the given request. If the registry is
// closed while the instance is launched, it is shut down again and
// [ErrClosed] is returned.
func (r *Registry) Start(ctx context.Context, req supervisor.LaunchRequest) (*Instance, error) {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}

	r.lastID++
	id := r.lastID

	// Close waits for starts in flight as well.
	r.reapers.Add(1)
	r.mu.Unlock()

	sup := r.supervisor

	var socket string
	if r.opts.SocketDir != "" {
		socket = filepath.Join(r.opts.SocketDir, "vm-"+strconv.FormatUint(id, 10)+".sock")
		sup = sup.WithQMPSocket(socket)
	}

	handle, err := sup.Launch(ctx, req)
	r.opts.Metrics.LaunchFinished(err)

	if err != nil {
		r.reapers.Done()
		return nil, err //nolint:wrapcheck
	}

	instance := &Instance{
		ID:        id,
		Request:   req,
		QMPSocket: socket,
		StartedAt: time.Now(),
		handle:    handle,
	}

	r.mu.Lock()
	r.instances[id] = instance
	closed := r.closed
	r.mu.Unlock()

	go r.reap(instance)

	slog.Info("Instance started",
		slog.Uint64("id", id),
		slog.Int("pid", handle.PID()))

	if closed {
		err := r.Shutdown(context.WithoutCancel(ctx), id)
		if err != nil && !errors.Is(err, ErrInstanceExited) {
			slog.Warn("Shut down instance started while closing",
				slog.Uint64("id", id),
				slog.Any("error", err))
		}

		return nil, ErrClosed
	}

	return instance, nil
}

func (r *Registry) reap(instance *Instance) {
	defer r.reapers.Done()

	err := instance.handle.Wait()
	r.opts.Metrics.InstanceExited(err)

	if instance.QMPSocket != "" {
		rmErr := os.Remove(instance.QMPSocket)
		if rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.Warn("Remove qmp socket", slog.Any("error", rmErr))
		}
	}

	slog.Info("Instance exited",
		slog.Uint64("id", instance.ID),
		slog.Int("pid", instance.PID()),
		slog.Int("exit_code", instance.handle.ExitCode()))
}

// Get returns the instance with the given ID.
func (r *Registry) Get(id uint64) (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	instance, exists := r.instances[id]
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}

	return instance, nil
}

// List returns all known instances sorted by ID.
func (r *Registry) List() []*Instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*Instance, 0, len(r.instances))
	for _, instance := range r.instances {
		list = append(list, instance)
	}

	slices.SortFunc(list, func(a, b *Instance) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return list
}

// Prune removes all exited instances and returns their IDs.
func (r *Registry) Prune() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pruned []uint64

	for id, instance := range r.instances {
		if instance.Exited() {
			delete(r.instances, id)
			pruned = append(pruned, id)
		}
	}

	slices.Sort(pruned)

	return pruned
}

func (r *Registry) countStates() map[supervisor.State]int {
	counts := make(map[supervisor.State]int)
	for _, instance := range r.List() {
		counts[instance.State()]++
	}

	return counts
}

// live returns the instance with the given ID if it has not exited yet.
func (r *Registry) live(id uint64) (*Instance, error) {
	instance, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	if instance.Exited() {
		return nil, fmt.Errorf("%w: %d", ErrInstanceExited, id)
	}

	return instance, nil
}

// Suspend sends the stop request to the instance.
func (r *Registry) Suspend(id uint64) error {
	return r.signal(id, "SIGTSTP", (*supervisor.ChildHandle).Suspend)
}

// Resume continues a suspended instance.
func (r *Registry) Resume(id uint64) error {
	return r.signal(id, "SIGCONT", (*supervisor.ChildHandle).Resume)
}

func (r *Registry) signal(
	id uint64,
	name string,
	send func(*supervisor.ChildHandle) error,
) error {
	instance, err := r.live(id)
	if err != nil {
		return err
	}

	err = send(instance.handle)
	if errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("%w: %d", ErrInstanceExited, id)
	} else if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	r.opts.Metrics.SignalSent(name)

	slog.Debug("Signal sent",
		slog.Uint64("id", id),
		slog.String("signal", name))

	return nil
}

// Shutdown shuts the instance down and waits until it has been reaped. If
// the instance has a QMP socket and is not suspended, it is asked to quit by
// QMP. Otherwise, or if QMP fails, it is terminated by SIGTERM. It is killed if it does not exit
// within the grace period or the context is done before.
func (r *Registry) Shutdown(ctx context.Context, id uint64) error {
	instance, err := r.live(id)
	if err != nil {
		return err
	}

	// A suspended emulator does not answer QMP. Terminate resumes it.
	if instance.State() == supervisor.StateStopped || !r.quit(ctx, instance) {
		err := r.signal(id, "SIGTERM", (*supervisor.ChildHandle).Terminate)
		if err != nil {
			return err
		}
	}

	timer := time.NewTimer(r.opts.GracePeriod)
	defer timer.Stop()

	select {
	case <-instance.Done():
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	slog.Warn("Killing instance", slog.Uint64("id", id))

	err = r.signal(id, "SIGKILL", (*supervisor.ChildHandle).Kill)
	if err != nil && !errors.Is(err, ErrInstanceExited) {
		return err
	}

	<-instance.Done()

	return nil
}

// quit asks the instance to quit by QMP. It returns true on success.
func (r *Registry) quit(ctx context.Context, instance *Instance) bool {
	if instance.QMPSocket == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, qmpTimeout)
	defer cancel()

	err := r.withQMP(ctx, instance, quitQMP)
	if err != nil {
		slog.Warn("QMP quit failed, falling back to SIGTERM",
			slog.Uint64("id", instance.ID),
			slog.Any("error", err))

		return false
	}

	return true
}

// ShutdownAll shuts down all live instances concurrently.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	var eg errgroup.Group

	for _, instance := range r.List() {
		if instance.Exited() {
			continue
		}

		eg.Go(func() error {
			err := r.Shutdown(ctx, instance.ID)
			if errors.Is(err, ErrInstanceExited) {
				return nil
			}

			return err
		})
	}

	return eg.Wait() //nolint:wrapcheck
}

// Close shuts down all instances and waits for all of them to be reaped. No
// new instances can be started afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	err := r.ShutdownAll(context.Background())

	r.reapers.Wait()

	return err
}
