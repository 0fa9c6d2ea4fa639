// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/virtsup/internal/api"
	"github.com/aibor/virtsup/internal/metrics"
	"github.com/aibor/virtsup/internal/qmp"
	"github.com/aibor/virtsup/internal/registry"
	"github.com/aibor/virtsup/internal/supervisor"
	"github.com/aibor/virtsup/internal/supervisor/supervisortest"
)

const (
	waitFor = 10 * time.Second
	tick    = 10 * time.Millisecond
)

var request = supervisor.LaunchRequest{
	DiskPath: "disk.img",
	ISOPath:  "boot.iso",
}

func newServer(t *testing.T, opts registry.Options) *api.Client {
	t.Helper()

	reg := registry.New(supervisortest.New(t), opts)
	server := httptest.NewServer(api.NewRouter(reg, opts.Metrics))

	t.Cleanup(func() {
		server.Close()
		assert.NoError(t, reg.Close())
	})

	client := api.NewClient(server.URL + "/")
	client.HTTPClient = server.Client()

	return client
}

func requireStatus(t *testing.T, err error, code int) {
	t.Helper()

	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, code, statusErr.Code, statusErr.Message)
}

func TestAPI_Lifecycle(t *testing.T) {
	client := newServer(t, registry.Options{})
	ctx := t.Context()

	info, err := client.Start(ctx, request)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.ID)
	assert.NotZero(t, info.PID)
	assert.Equal(t, "disk.img", info.DiskPath)

	got, err := client.Get(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.PID, got.PID)

	list, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = client.Action(ctx, info.ID, api.ActionSuspend)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, err := client.Get(ctx, info.ID)
		return err == nil && got.State == supervisor.StateStopped
	}, waitFor, tick)

	_, err = client.Action(ctx, info.ID, api.ActionResume)
	require.NoError(t, err)

	_, err = client.Action(ctx, info.ID, api.ActionPause)
	requireStatus(t, err, http.StatusConflict)

	got, err = client.Action(ctx, info.ID, api.ActionShutdown)
	require.NoError(t, err)
	assert.Equal(t, supervisor.StateExited, got.State)
	require.NotNil(t, got.ExitCode)

	_, err = client.Action(ctx, info.ID, api.ActionSuspend)
	requireStatus(t, err, http.StatusConflict)

	pruned, err := client.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{info.ID}, pruned)

	_, err = client.Get(ctx, info.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestAPI_QMP(t *testing.T) {
	client := newServer(t, registry.Options{SocketDir: t.TempDir()})
	ctx := t.Context()

	info, err := client.Start(ctx, request)
	require.NoError(t, err)
	require.NotEmpty(t, info.QMPSocket)

	require.Eventually(t, func() bool {
		_, err := os.Stat(info.QMPSocket)
		return err == nil
	}, waitFor, tick)

	_, err = client.Action(ctx, info.ID, api.ActionPause)
	require.NoError(t, err)

	status, err := client.Status(ctx, info.ID)
	require.NoError(t, err)
	assert.False(t, status.Running)

	_, err = client.Action(ctx, info.ID, api.ActionContinue)
	require.NoError(t, err)

	ret, err := client.Execute(ctx, info.ID, qmp.CommandQueryStatus, nil)
	require.NoError(t, err)
	assert.Contains(t, string(ret), `"running":true`)

	_, err = client.Execute(ctx, info.ID, "no-such-command", nil)
	requireStatus(t, err, http.StatusBadRequest)

	_, err = client.Execute(ctx, info.ID, "", nil)
	requireStatus(t, err, http.StatusBadRequest)
}

func TestAPI_Errors(t *testing.T) {
	m := metrics.New()
	client := newServer(t, registry.Options{Metrics: m})
	ctx := t.Context()

	_, err := client.Start(ctx, supervisor.LaunchRequest{DiskPath: "disk.img"})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = client.Get(ctx, 42)
	requireStatus(t, err, http.StatusNotFound)

	_, err = client.Action(ctx, 42, api.ActionResume)
	requireStatus(t, err, http.StatusNotFound)

	info, err := client.Start(ctx, request)
	require.NoError(t, err)

	_, err = client.Action(ctx, info.ID, "explode")
	requireStatus(t, err, http.StatusNotFound)
}

func TestRouter_Endpoints(t *testing.T) {
	m := metrics.New()
	reg := registry.New(supervisortest.New(t), registry.Options{Metrics: m})
	router := api.NewRouter(reg, m)

	t.Cleanup(func() {
		assert.NoError(t, reg.Close())
	})

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		code     int
		contains string
	}{
		{
			name:     "health",
			method:   http.MethodGet,
			path:     "/health",
			code:     http.StatusOK,
			contains: `"status":"ok"`,
		},
		{
			name:     "metrics",
			method:   http.MethodGet,
			path:     "/metrics",
			code:     http.StatusOK,
			contains: "virtsup_instances",
		},
		{
			name:   "empty list",
			method: http.MethodGet,
			path:   "/vms",
			code:   http.StatusOK,
		},
		{
			name:   "malformed body",
			method: http.MethodPost,
			path:   "/vms",
			body:   "{",
			code:   http.StatusBadRequest,
		},
		{
			name:   "non numeric id",
			method: http.MethodGet,
			path:   "/vms/abc",
			code:   http.StatusNotFound,
		},
		{
			name:   "wrong method",
			method: http.MethodDelete,
			path:   "/vms",
			code:   http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)

			body, err := io.ReadAll(rec.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tt.contains)
		})
	}
}
