// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestStopHandler_Run(t *testing.T) {
	var (
		suspended atomic.Int32
		target    atomic.Int64
	)

	handler := &StopHandler{
		signals: make(chan os.Signal, 1),
		target:  -42,
		suspend: func(pid int) error {
			target.Store(int64(pid))
			suspended.Add(1)

			return nil
		},
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})

	go func() {
		handler.Run(ctx)
		close(done)
	}()

	handler.signals <- StopSignal
	handler.signals <- StopSignal

	require.Eventually(t, func() bool {
		return suspended.Load() == 2
	}, time.Second, time.Millisecond)
	assert.EqualValues(t, -42, target.Load())

	cancel()
	<-done
}

func TestStopHandler_RunSuspendFails(t *testing.T) {
	var calls atomic.Int32

	handler := &StopHandler{
		signals: make(chan os.Signal, 1),
		suspend: func(int) error {
			if calls.Add(1) == 1 {
				return errors.New("suspend failed")
			}

			return nil
		},
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})

	go func() {
		handler.Run(ctx)
		close(done)
	}()

	handler.signals <- unix.SIGTSTP
	handler.signals <- unix.SIGTSTP

	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, time.Millisecond, "requests after a failure must be handled")

	select {
	case <-done:
		require.Fail(t, "handler must keep running after a failed suspend")
	default:
	}

	cancel()
	<-done
}

func TestRunChild_InstallFails(t *testing.T) {
	oldInstall := installHandler
	t.Cleanup(func() { installHandler = oldInstall })

	installHandler = func() (*StopHandler, error) {
		return nil, ErrSignalHandlerInstallFailed
	}

	marker := filepath.Join(t.TempDir(), "marker")

	exitCode := RunChild(t.Context(), []string{"touch", marker})

	assert.Equal(t, ExitCodeSignalHandlerInstallFail, exitCode)
	assert.NoFileExists(t, marker, "emulator must not run unsupervised")
}

func TestRunChild_MissingCommand(t *testing.T) {
	assert.Equal(t, ExitCodeUsage, RunChild(t.Context(), nil))
}

func TestInstallStopHandler(t *testing.T) {
	first, err := InstallStopHandler()
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := InstallStopHandler()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.False(t, first.InstalledAt().IsZero())
	assert.NotZero(t, first.target)

	pgid, err := unix.Getpgid(0)
	require.NoError(t, err)

	if pgid == os.Getpid() {
		assert.Equal(t, -pgid, first.target)
	} else {
		assert.Equal(t, os.Getpid(), first.target)
	}
}
